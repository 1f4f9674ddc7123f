package remote

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

func spotImagesPath(spotID int64) string {
	return "/admin/travel-spots/" + strconv.FormatInt(spotID, 10) + "/images/"
}

func imagePath(imageID int64, action string) string {
	return "/admin/travel-spots/images/" + strconv.FormatInt(imageID, 10) + "/" + action + "/"
}

// ListImages returns the images of a travel spot in server order.
func (c *Client) ListImages(ctx context.Context, spotID int64) ([]domain.SpotImage, error) {
	var dtos []imageDTO
	if err := c.sendJSON(ctx, "GET", spotImagesPath(spotID), nil, nil, &dtos); err != nil {
		return nil, fmt.Errorf("remote.Client.ListImages: %w", err)
	}
	out := make([]domain.SpotImage, len(dtos))
	for i, d := range dtos {
		out[i] = d.toDomain()
	}
	return out, nil
}

// UploadImage posts one image as multipart/form-data.
func (c *Client) UploadImage(ctx context.Context, spotID int64, up domain.ImageUpload) (domain.SpotImage, error) {
	fields := map[string]string{
		"position":   strconv.Itoa(up.Position),
		"is_primary": strconv.FormatBool(up.IsPrimary),
	}
	if up.Caption != "" {
		fields["caption"] = up.Caption
	}
	body, contentType, err := multipartBody(&up.File, fields)
	if err != nil {
		return domain.SpotImage{}, fmt.Errorf("remote.Client.UploadImage: %w", err)
	}
	req, err := c.newRequest(ctx, "POST", spotImagesPath(spotID), nil, body, contentType)
	if err != nil {
		return domain.SpotImage{}, fmt.Errorf("remote.Client.UploadImage: %w", err)
	}
	var dto imageDTO
	if err := c.send(req, &dto); err != nil {
		return domain.SpotImage{}, fmt.Errorf("remote.Client.UploadImage: %w", err)
	}
	return dto.toDomain(), nil
}

// ReplaceImage swaps the binary and/or caption of an image. A nil caption
// is not sent; an empty one clears the caption.
func (c *Client) ReplaceImage(ctx context.Context, imageID int64, rep domain.ImageReplace) (domain.SpotImage, error) {
	fields := map[string]string{}
	if rep.Caption != nil {
		fields["caption"] = *rep.Caption
	}
	body, contentType, err := multipartBody(rep.File, fields)
	if err != nil {
		return domain.SpotImage{}, fmt.Errorf("remote.Client.ReplaceImage: %w", err)
	}
	req, err := c.newRequest(ctx, "PUT", imagePath(imageID, "replace"), nil, body, contentType)
	if err != nil {
		return domain.SpotImage{}, fmt.Errorf("remote.Client.ReplaceImage: %w", err)
	}
	var dto imageDTO
	if err := c.send(req, &dto); err != nil {
		return domain.SpotImage{}, fmt.Errorf("remote.Client.ReplaceImage: %w", err)
	}
	return dto.toDomain(), nil
}

// SetPrimaryImage makes imageID the primary image of its spot.
func (c *Client) SetPrimaryImage(ctx context.Context, imageID int64) error {
	if err := c.sendJSON(ctx, "PATCH", imagePath(imageID, "set-primary"), nil, nil, nil); err != nil {
		return fmt.Errorf("remote.Client.SetPrimaryImage: %w", err)
	}
	return nil
}

type reorderRequest struct {
	Images []domain.ImagePosition `json:"images"`
}

// ReorderImages submits the complete (id, position) list of a spot.
func (c *Client) ReorderImages(ctx context.Context, spotID int64, order []domain.ImagePosition) error {
	path := spotImagesPath(spotID) + "reorder/"
	if err := c.sendJSON(ctx, "PATCH", path, nil, reorderRequest{Images: order}, nil); err != nil {
		return fmt.Errorf("remote.Client.ReorderImages: %w", err)
	}
	return nil
}

// DeleteImage removes one image.
func (c *Client) DeleteImage(ctx context.Context, imageID int64) error {
	if err := c.sendJSON(ctx, "DELETE", imagePath(imageID, "delete"), nil, nil, nil); err != nil {
		return fmt.Errorf("remote.Client.DeleteImage: %w", err)
	}
	return nil
}

// multipartBody writes fields and, when file is set, an "image" part whose
// content type is sniffed from the data.
func multipartBody(file *domain.ImageFile, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, file.Name))
		h.Set("Content-Type", mimetype.Detect(file.Data).String())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
