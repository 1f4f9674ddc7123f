package domain

// SpotImage is one image of a travel spot. Within a spot, positions are dense
// (1..N) and exactly one image is primary whenever the list is non-empty.
type SpotImage struct {
	ID        int64  `json:"id"`
	URL       string `json:"image"`
	Caption   string `json:"caption"`
	Position  int    `json:"position"`
	IsPrimary bool   `json:"is_primary"`
}

// ImageFile is an uploaded binary payload, held in memory.
type ImageFile struct {
	Name string
	Data []byte
}

// Size returns the payload length in bytes.
func (f ImageFile) Size() int64 { return int64(len(f.Data)) }

// ImagePosition is one entry of a reorder request.
type ImagePosition struct {
	ID       int64 `json:"id"`
	Position int   `json:"position"`
}

// ImageUpload is the multipart body of an image upload.
type ImageUpload struct {
	File      ImageFile
	Caption   string
	Position  int
	IsPrimary bool
}

// ImageReplace is the multipart body of an in-place replacement.
// A nil File keeps the current binary. A nil Caption keeps the current
// caption; a pointer to "" clears it.
type ImageReplace struct {
	File    *ImageFile
	Caption *string
}
