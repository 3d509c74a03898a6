package http

type Metadata struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Source      string `json:"source"` // "oasis" or "pontusx"
}

type AddressMetadataResponse struct {
	Network   string    `json:"network"`
	Layer     string    `json:"layer"`
	Address   string    `json:"address"`
	Metadata  *Metadata `json:"metadata"`
	IsLoading bool      `json:"is_loading"`
	IsError   bool      `json:"is_error"`
}

type NameSearchMatch struct {
	Network  string   `json:"network"`
	Layer    string   `json:"layer"`
	Metadata Metadata `json:"metadata"`
}

type NameSearchResponse struct {
	Network   string            `json:"network"`
	Layer     string            `json:"layer"`
	Name      string            `json:"name"`
	IsLoading bool              `json:"is_loading"`
	IsError   bool              `json:"is_error"`
	Results   []NameSearchMatch `json:"results"`
}

type Scope struct {
	Network     string `json:"network"`
	Layer       string `json:"layer"`
	IsAlternate bool   `json:"is_alternate"`
	IsLocal     bool   `json:"is_local"`
}

type ScopesResponse struct {
	Scopes []Scope `json:"scopes"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
