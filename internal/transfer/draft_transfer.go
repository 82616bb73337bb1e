package transfer

// MediaInline carries raw media content in the draft request body.
type MediaInline struct {
	Mime     string `json:"mime"`
	Encoding string `json:"encoding"` // utf8 | base64
	Content  string `json:"content"`
}

// DraftCreation is the POST /drafts payload. Media sources are tried in
// priority order: inline content, then data URL, then a plain media URL.
type DraftCreation struct {
	Caption      string       `json:"caption" validate:"required"`
	MediaURL     string       `json:"media_url" validate:"omitempty,url"`
	MediaDataURL string       `json:"media_data_url"`
	MediaInline  *MediaInline `json:"media_inline"`
	MediaS3Key   string       `json:"-"`
	MediaType    string       `json:"media_type"`
	Platforms    []string     `json:"platforms"`
	Source       string       `json:"source"`
	Notes        string       `json:"notes"`
}
