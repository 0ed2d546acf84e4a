package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"scms/backend/internal/complaint"

	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for the text fields next to the image.
const multipartOverhead = 1 << 20

type statusRequest struct {
	Status string `json:"status"`
}

type assignRequest struct {
	AssignedTo string `json:"assigned_to"`
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handler) SubmitComplaint(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+multipartOverhead)
	}
	if err := c.Request.ParseMultipartForm(multipartOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large."})
			return
		}
		badRequest(c, "Invalid form data.")
		return
	}
	in := complaint.SubmitInput{
		Category:    c.PostForm("category"),
		Building:    c.PostForm("building"),
		RoomNumber:  c.PostForm("room_number"),
		Description: c.PostForm("description"),
	}

	header, err := c.FormFile("image")
	switch {
	case err == nil:
		file, err := header.Open()
		if err != nil {
			h.fail(c, err)
			return
		}
		defer file.Close()
		in.Image = uploadFrom(header, file)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		badRequest(c, "Invalid image upload.")
		return
	}

	created, err := h.Complaints.Submit(c.Request.Context(), identity(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newComplaintResponse(created))
}

func uploadFrom(header *multipart.FileHeader, file multipart.File) *complaint.Upload {
	return &complaint.Upload{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
}

func (h *Handler) ListComplaints(c *gin.Context) {
	list, err := h.Complaints.List(c.Request.Context(), identity(c), complaint.Filter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newComplaintList(list))
}

func (h *Handler) GetComplaint(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	got, err := h.Complaints.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newComplaintResponse(got))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	updated, err := h.Complaints.UpdateStatus(c.Request.Context(), identity(c), id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newComplaintResponse(updated))
}

func (h *Handler) AssignComplaint(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	updated, err := h.Complaints.Assign(c.Request.Context(), identity(c), id, req.AssignedTo)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newComplaintResponse(updated))
}

func (h *Handler) AddComment(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	updated, err := h.Complaints.AddComment(c.Request.Context(), identity(c), id, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newComplaintResponse(updated))
}

func complaintID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid complaint id.")
		return 0, false
	}
	return uint(id), true
}
