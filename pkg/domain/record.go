package domain

// Record is a row returned by a directory lookup.
type Record struct {
	ID      int64  `json:"id" mapstructure:"id"`
	Name    string `json:"name" mapstructure:"name"`
	Contact string `json:"contact" mapstructure:"contact"`
}
