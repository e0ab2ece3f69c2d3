package images

import "time"

// Orígenes de una imagen; viajan en el evento newImage.
const (
	SourceUpload   = "upload"
	SourceAnalysis = "analyze-image"
)

const MaxImageBytes = 20 << 20

var allowedTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Upload es una imagen guardada y anunciada.
type Upload struct {
	ImageID     string    `json:"image_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	URL         string    `json:"imageUrl"`
	ShortURL    string    `json:"shortUrl"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}
