package schema

// ConfirmRequest is the params of ui.confirm.request.
type ConfirmRequest struct {
	ID            RequestID `json:"-"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	DangerLevel   string    `json:"danger_level,omitempty"`
	ConfirmLabel  string    `json:"confirm_label,omitempty"`
	CancelLabel   string    `json:"cancel_label,omitempty"`
	AllowRemember bool      `json:"allow_remember"`
	AllowReason   bool      `json:"allow_reason"`
}

// PromptRequest is the params of ui.prompt.request.
type PromptRequest struct {
	ID           RequestID `json:"-"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	DefaultValue *string   `json:"default_value,omitempty"`
	Multiline    bool      `json:"multiline"`
	Secret       bool      `json:"secret"`
}

// PickItem is one choice in a pick request.
type PickItem struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
}

// PickRequest is the params of ui.pick.request.
type PickRequest struct {
	ID    RequestID  `json:"-"`
	Title string     `json:"title"`
	Items []PickItem `json:"items"`
	Multi bool       `json:"multi"`
}

// ConfirmResult answers a confirm request.
type ConfirmResult struct {
	OK       bool    `json:"ok"`
	Remember bool    `json:"remember"`
	Reason   *string `json:"reason"`
}

// PromptResult answers a prompt request. A nil Value means cancelled.
type PromptResult struct {
	Value *string `json:"value"`
}

// PickResult answers a pick request.
type PickResult struct {
	IDs []string `json:"ids"`
}
