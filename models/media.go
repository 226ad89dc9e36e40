package models

// MediaEntry describes one servable file inside the media root.
type MediaEntry struct {
	// Name is the root-relative path clients use to request the file.
	Name string `json:"name"`
	// Title is a display title derived from the file name,
	// transliterated to ASCII.
	Title string `json:"title"`
	Size  int64  `json:"size"`
}
