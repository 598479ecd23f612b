package models

// Medicine is a pharmacy catalog item.
type Medicine struct {
	BaseModel
	Name                 string  `gorm:"size:200;uniqueIndex" json:"name"`
	Manufacturer         string  `gorm:"size:200" json:"manufacturer"`
	Category             string  `gorm:"size:100;index" json:"category"`
	Description          string  `gorm:"type:text" json:"description"`
	Price                float64 `json:"price"`
	RequiresPrescription bool    `json:"requiresPrescription"`
	InStock              bool    `gorm:"default:true" json:"inStock"`
}

// LabTest is a lab catalog item.
type LabTest struct {
	BaseModel
	Name           string  `gorm:"size:200;uniqueIndex" json:"name"`
	Category       string  `gorm:"size:100;index" json:"category"`
	Description    string  `gorm:"type:text" json:"description"`
	SampleType     string  `gorm:"size:50" json:"sampleType"`
	Price          float64 `json:"price"`
	TurnaroundDays int     `json:"turnaroundDays"`
	FastingNeeded  bool    `json:"fastingNeeded"`
}
