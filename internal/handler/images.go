package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// ListImages handles GET /sessions/{id}/images. In a create session this
// persists the record on first use so images have something to attach to.
func (s *Server) ListImages(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	list, err := s.editor.Images(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ImageListResponse{Images: imagesOrEmpty(list)})
}

// UploadImage handles POST /sessions/{id}/images (multipart: image, caption).
// The new image is appended at the end of the list.
func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	form, err := s.parseImageForm(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if form.file == nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{
			Code:    "validation_error",
			Message: "validation failed",
			Fields:  domain.FieldErrors{"image": {"an image file is required"}},
		}})
		return
	}
	var caption string
	if form.caption != nil {
		caption = *form.caption
	}
	img, err := s.editor.UploadImage(r.Context(), id, *form.file, caption)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

// ReplaceImage handles PUT /sessions/{id}/images/{imageId}. Both parts are
// optional: a missing image keeps the binary, a missing caption keeps the
// caption and an empty caption clears it.
func (s *Server) ReplaceImage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	imgID, err := imageID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	form, err := s.parseImageForm(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	img, err := s.editor.ReplaceImage(r.Context(), id, imgID, form.file, form.caption)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// SetPrimaryImage handles POST /sessions/{id}/images/{imageId}/primary.
func (s *Server) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	s.mutateImage(w, r, s.editor.SetPrimaryImage)
}

// DeleteImage handles DELETE /sessions/{id}/images/{imageId}.
func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request) {
	s.mutateImage(w, r, s.editor.DeleteImage)
}

// MoveImage handles POST /sessions/{id}/images/move.
func (s *Server) MoveImage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var body MoveImageRequest
	if err := decodeBody(r, &body, false); err != nil {
		badRequest(w, err)
		return
	}
	list, err := s.editor.MoveImage(r.Context(), id, body.Position, body.Direction)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ImageListResponse{Images: imagesOrEmpty(list)})
}

// mutateImage runs an operation addressed to one image and writes the
// resulting list.
func (s *Server) mutateImage(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, int64) ([]domain.SpotImage, error)) {
	id, err := sessionID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	imgID, err := imageID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	list, err := op(r.Context(), id, imgID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ImageListResponse{Images: imagesOrEmpty(list)})
}

type imageForm struct {
	file    *domain.ImageFile
	caption *string
}

// parseImageForm reads the "image" file part and the "caption" value of a
// multipart request. Absent parts come back nil.
func (s *Server) parseImageForm(r *http.Request) (imageForm, error) {
	var form imageForm
	if err := r.ParseMultipartForm(s.uploadMemory); err != nil {
		return form, fmt.Errorf("invalid multipart body: %w", err)
	}
	if vals, ok := r.MultipartForm.Value["caption"]; ok && len(vals) > 0 {
		c := vals[0]
		form.caption = &c
	}
	headers := r.MultipartForm.File["image"]
	if len(headers) == 0 {
		return form, nil
	}
	if len(headers) > 1 {
		return form, errors.New("invalid multipart body: exactly one image part is allowed")
	}

	var f openapi_types.File
	f.InitFromMultipart(headers[0])
	data, err := f.Bytes()
	if err != nil {
		return form, fmt.Errorf("invalid multipart body: %w", err)
	}
	form.file = &domain.ImageFile{Name: f.Filename(), Data: data}
	return form, nil
}
