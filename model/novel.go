package model

// Author is the novel's creator as reported by the platform.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tag is a single novel tag, optionally with a translation.
type Tag struct {
	Name           string `json:"name"`
	TranslatedName string `json:"translated_name,omitempty"`
}

// Series links a novel into its series, when it belongs to one.
type Series struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// NovelRecord is one fetched novel: listing metadata plus the raw markup
// body. Immutable once fetched.
type NovelRecord struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Caption    string  `json:"caption"`
	Author     Author  `json:"user"`
	Tags       []Tag   `json:"tags"`
	CreateDate string  `json:"create_date"`
	TextLength int     `json:"text_length"`
	Series     *Series `json:"series,omitempty"`

	// Body is the raw pixiv markup, resolved lazily when the record is
	// consumed from an iterator.
	Body string `json:"body,omitempty"`
}
