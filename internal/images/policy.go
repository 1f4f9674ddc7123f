package images

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// DefaultMaxBytes is the upload size limit used when none is configured.
const DefaultMaxBytes int64 = 5 << 20

// Policy decides which files may be uploaded. The content is sniffed; the
// client supplied file name and content type are not trusted.
type Policy struct {
	MaxBytes int64
}

// DefaultPolicy returns the 5 MB image-only policy.
func DefaultPolicy() Policy {
	return Policy{MaxBytes: DefaultMaxBytes}
}

// Check returns a *domain.ValidationError on the "image" field when f is
// empty, too large, or not an image.
func (p Policy) Check(f domain.ImageFile) error {
	max := p.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	if f.Size() == 0 {
		return domain.NewValidationError("image", "file is empty")
	}
	if f.Size() > max {
		return domain.NewValidationError("image", fmt.Sprintf("file is %d bytes, the limit is %d", f.Size(), max))
	}
	mt := mimetype.Detect(f.Data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return domain.NewValidationError("image", fmt.Sprintf("unsupported file type %s", mt.String()))
	}
	return nil
}
