package media

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
)

const MaxPayloadSize = 5 << 20

type Payload struct {
	Data        []byte
	ContentType string
	Extension   string
}

// DecodeDataURL parses a base64 data URL (data:image/png;base64,....) as sent
// by the web client for post, story and profile images.
func DecodeDataURL(raw string) (Payload, error) {
	var out Payload

	header, encoded, ok := strings.Cut(raw, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return out, fmt.Errorf("media must be a base64 data url")
	}

	out.ContentType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if !strings.HasPrefix(out.ContentType, "image/") && !strings.HasPrefix(out.ContentType, "video/") {
		return out, fmt.Errorf("unsupported media type %q", out.ContentType)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return out, fmt.Errorf("unable to decode media: %v", err)
	}
	if len(data) == 0 {
		return out, fmt.Errorf("media is empty")
	}
	if len(data) > MaxPayloadSize {
		return out, fmt.Errorf("media is larger than %d bytes", MaxPayloadSize)
	}
	out.Data = data

	if exts, _ := mime.ExtensionsByType(out.ContentType); len(exts) > 0 {
		out.Extension = exts[0]
	} else {
		_, subtype, _ := strings.Cut(out.ContentType, "/")
		out.Extension = "." + subtype
	}

	return out, nil
}

// ObjectName builds a collision free key under the given folder.
func (v Payload) ObjectName(folder string) string {
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), v.Extension)
}
