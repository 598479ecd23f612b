package seed

import (
	"medconnect-server/internal/models"
)

type doctorFixture struct {
	user    models.User
	profile models.DoctorProfile
}

var bothModes = []models.ConsultationType{models.ConsultationVideo, models.ConsultationClinic}

var morningSlots = []string{"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM"}

var afternoonSlots = []string{"02:00 PM", "02:30 PM", "03:00 PM", "03:30 PM", "04:00 PM", "04:30 PM"}

var doctors = []doctorFixture{
	{
		user: models.User{Email: "neha.mehta@medconnect.test", FirstName: "Neha", LastName: "Mehta", Role: models.RoleDoctor, PhoneNumber: "+91 98200 11001"},
		profile: models.DoctorProfile{
			Specialty: "Cardiologist", Qualification: "MBBS, MD, DM (Cardiology)", ExperienceYears: 14,
			ConsultationFee: 800, HospitalName: "City Heart Institute", Languages: "English, Hindi", Rating: 4.8,
			About:             "Interventional cardiologist focused on preventive heart care.",
			ConsultationTypes: bothModes, AvailableSlots: morningSlots,
		},
	},
	{
		user: models.User{Email: "arjun.nair@medconnect.test", FirstName: "Arjun", LastName: "Nair", Role: models.RoleDoctor, PhoneNumber: "+91 98200 11002"},
		profile: models.DoctorProfile{
			Specialty: "Dermatologist", Qualification: "MBBS, MD (Dermatology)", ExperienceYears: 9,
			ConsultationFee: 600, HospitalName: "SkinFirst Clinic", Languages: "English, Malayalam", Rating: 4.6,
			ConsultationTypes: bothModes, AvailableSlots: afternoonSlots,
		},
	},
	{
		user: models.User{Email: "farah.khan@medconnect.test", FirstName: "Farah", LastName: "Khan", Role: models.RoleDoctor, PhoneNumber: "+91 98200 11003"},
		profile: models.DoctorProfile{
			Specialty: "Neurologist", Qualification: "MBBS, DM (Neurology)", ExperienceYears: 17,
			ConsultationFee: 1000, HospitalName: "NeuroCare Hospital", Languages: "English, Hindi, Urdu", Rating: 4.9,
			ConsultationTypes: []models.ConsultationType{models.ConsultationClinic}, AvailableSlots: morningSlots,
		},
	},
	{
		user: models.User{Email: "vikram.rao@medconnect.test", FirstName: "Vikram", LastName: "Rao", Role: models.RoleDoctor, PhoneNumber: "+91 98200 11004"},
		profile: models.DoctorProfile{
			Specialty: "General Physician", Qualification: "MBBS", ExperienceYears: 6,
			ConsultationFee: 400, HospitalName: "MedConnect Family Clinic", Languages: "English, Kannada, Telugu", Rating: 4.4,
			ConsultationTypes: bothModes,
		},
	},
	{
		user: models.User{Email: "meera.iyer@medconnect.test", FirstName: "Meera", LastName: "Iyer", Role: models.RoleDoctor, PhoneNumber: "+91 98200 11005"},
		profile: models.DoctorProfile{
			Specialty: "Gastroenterologist", Qualification: "MBBS, MD, DM (Gastroenterology)", ExperienceYears: 11,
			ConsultationFee: 900, HospitalName: "Digestive Health Centre", Languages: "English, Tamil", Rating: 4.7,
			ConsultationTypes: []models.ConsultationType{models.ConsultationVideo}, AvailableSlots: afternoonSlots,
		},
	},
	{
		user: models.User{Email: "rohit.sharma@medconnect.test", FirstName: "Rohit", LastName: "Sharma", Role: models.RoleDoctor, PhoneNumber: "+91 98200 11006"},
		profile: models.DoctorProfile{
			Specialty: "Orthopedic", Qualification: "MBBS, MS (Orthopaedics)", ExperienceYears: 12,
			ConsultationFee: 700, HospitalName: "Bone & Joint Hospital", Languages: "English, Hindi, Punjabi", Rating: 4.5,
			ConsultationTypes: []models.ConsultationType{models.ConsultationClinic},
		},
	},
}

var hospitals = []models.User{
	{Email: "er@cityheart.test", FirstName: "City Heart", LastName: "Institute", Role: models.RoleHospital, PhoneNumber: "108", Address: "14 MG Road, Bengaluru"},
	{Email: "er@neurocare.test", FirstName: "NeuroCare", LastName: "Hospital", Role: models.RoleHospital, PhoneNumber: "+91 80 4000 2000", Address: "2 Residency Road, Bengaluru"},
	{Email: "er@sunrise.test", FirstName: "Sunrise", LastName: "Multispeciality", Role: models.RoleHospital, PhoneNumber: "+91 80 4000 3000", Address: "88 Outer Ring Road, Bengaluru"},
}

var labPartners = []models.User{
	{Email: "ops@precisionlabs.test", FirstName: "Precision", LastName: "Labs", Role: models.RoleLabPartner, PhoneNumber: "+91 80 4100 1000"},
}

var medicines = []models.Medicine{
	{Name: "Paracetamol 500mg", Manufacturer: "Cipla", Category: "Pain relief", Description: "Fever and mild pain relief. Strip of 15 tablets.", Price: 30, InStock: true},
	{Name: "Cetirizine 10mg", Manufacturer: "Dr. Reddy's", Category: "Allergy", Description: "Antihistamine for allergic rhinitis. Strip of 10 tablets.", Price: 45, InStock: true},
	{Name: "Amoxicillin 500mg", Manufacturer: "Sun Pharma", Category: "Antibiotic", Description: "Broad-spectrum antibiotic. Strip of 10 capsules.", Price: 120, RequiresPrescription: true, InStock: true},
	{Name: "Metformin 500mg", Manufacturer: "USV", Category: "Diabetes", Description: "First-line oral diabetes medication. Strip of 20 tablets.", Price: 60, RequiresPrescription: true, InStock: true},
	{Name: "Atorvastatin 10mg", Manufacturer: "Lupin", Category: "Cardiac", Description: "Cholesterol lowering statin. Strip of 15 tablets.", Price: 150, RequiresPrescription: true, InStock: true},
	{Name: "Oral Rehydration Salts", Manufacturer: "FDC", Category: "Digestive", Description: "Electrolyte replacement sachets, pack of 5.", Price: 95, InStock: true},
	{Name: "Digital Thermometer", Manufacturer: "Omron", Category: "Devices", Description: "Fast-read digital thermometer.", Price: 299, InStock: true},
	{Name: "Blood Pressure Monitor", Manufacturer: "Omron", Category: "Devices", Description: "Automatic upper-arm BP monitor.", Price: 2199, InStock: false},
}

var labTests = []models.LabTest{
	{Name: "Complete Blood Count", Category: "Haematology", Description: "Red cells, white cells and platelets.", SampleType: "blood", Price: 350, TurnaroundDays: 1},
	{Name: "Lipid Profile", Category: "Cardiac", Description: "Total cholesterol, HDL, LDL and triglycerides.", SampleType: "blood", Price: 600, TurnaroundDays: 1, FastingNeeded: true},
	{Name: "HbA1c", Category: "Diabetes", Description: "Average blood glucose over three months.", SampleType: "blood", Price: 500, TurnaroundDays: 1},
	{Name: "Thyroid Profile (T3, T4, TSH)", Category: "Hormones", Description: "Thyroid function screen.", SampleType: "blood", Price: 550, TurnaroundDays: 2},
	{Name: "Urine Routine", Category: "Pathology", Description: "Physical, chemical and microscopic urine exam.", SampleType: "urine", Price: 200, TurnaroundDays: 1},
	{Name: "Vitamin D (25-OH)", Category: "Vitamins", Description: "Vitamin D deficiency screen.", SampleType: "blood", Price: 1200, TurnaroundDays: 2},
}
