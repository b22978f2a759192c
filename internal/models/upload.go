package models

// UploadResult is the upload collaborator's response for a completed file.
// The endpoint returns either secure_url or url depending on deployment;
// ResolvedURL picks whichever is present.
type UploadResult struct {
	SecureURL string `json:"secure_url,omitempty"`
	URL       string `json:"url,omitempty"`
	PublicID  string `json:"public_id"`
}

// ResolvedURL returns the remote URL for the uploaded file, preferring the
// TLS variant.
func (r *UploadResult) ResolvedURL() string {
	if r.SecureURL != "" {
		return r.SecureURL
	}
	return r.URL
}

// UploadBucket is the size-limit classification applied before any network
// call. Everything that is not an image or a video counts as raw.
type UploadBucket string

const (
	UploadBucketImage UploadBucket = "image"
	UploadBucketVideo UploadBucket = "video"
	UploadBucketRaw   UploadBucket = "raw"
)
