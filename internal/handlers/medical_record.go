package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/integrations"
	"medconnect-server/internal/models"
	"medconnect-server/internal/records"
	"medconnect-server/internal/utils"
)

// MaxUploadBytes bounds a single uploaded file.
const MaxUploadBytes = 10 << 20

// MedicalRecordHandler handles health records, their files and sharing.
type MedicalRecordHandler struct {
	svc *records.Service
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(svc *records.Service) *MedicalRecordHandler {
	return &MedicalRecordHandler{svc: svc}
}

// CreateMedicalRecord handles POST /records (patients only).
func (h *MedicalRecordHandler) CreateMedicalRecord(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var in records.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	rec, err := h.svc.Create(c.Request.Context(), actor, in)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Health record created successfully", rec)
}

// GetMedicalRecords handles GET /records?type=&shared=true. With shared the
// list holds records other patients shared with the caller.
func (h *MedicalRecordHandler) GetMedicalRecords(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), actor, models.HealthRecordType(c.Query("type")), queryBool(c, "shared"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Health records fetched successfully", list)
}

// GetMedicalRecordByID is open to the owner, admins and users the record is shared with.
func (h *MedicalRecordHandler) GetMedicalRecordByID(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Health record fetched successfully", rec)
}

func (h *MedicalRecordHandler) UpdateMedicalRecord(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var in records.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	rec, err := h.svc.Update(c.Request.Context(), actor, c.Param("id"), in)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Health record updated successfully", rec)
}

func (h *MedicalRecordHandler) DeleteMedicalRecord(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Health record deleted successfully", nil)
}

// ShareRequest names the person a record is shared with.
type ShareRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *MedicalRecordHandler) Share(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req ShareRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	rec, err := h.svc.Share(c.Request.Context(), actor, c.Param("id"), req.Email)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Health record shared with "+req.Email, rec)
}

func (h *MedicalRecordHandler) Unshare(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req ShareRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	rec, err := h.svc.Unshare(c.Request.Context(), actor, c.Param("id"), req.Email)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Sharing with "+req.Email+" removed", rec)
}

// Extract runs document extraction over the record's attached file.
func (h *MedicalRecordHandler) Extract(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	rec, err := h.svc.Extract(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Data extracted successfully", rec)
}

// Summary handles GET /records/summary.
func (h *MedicalRecordHandler) Summary(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	sum, err := h.svc.Summarize(c.Request.Context(), actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Summary generated", sum)
}

// UploadFile handles POST /files with a multipart "file" field. The returned
// fileId/fileUrl is then attached to a record.
func (h *MedicalRecordHandler) UploadFile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "Error retrieving file from form: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		utils.BadRequest(c, "Error reading file content: "+err.Error())
		return
	}
	if len(data) > MaxUploadBytes {
		utils.BadRequest(c, fmt.Sprintf("File exceeds %d MB", MaxUploadBytes>>20))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	uploaded, err := h.svc.Upload(c.Request.Context(), actor, integrations.FileUpload{
		OwnerID:     actor.ID,
		FileName:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "File uploaded successfully", uploaded)
}

// GetFile serves a stored file to its owner and to users who can read the
// record it is attached to.
func (h *MedicalRecordHandler) GetFile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	f, err := h.svc.File(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.FileName))
	c.Data(http.StatusOK, f.ContentType, f.Data)
}
