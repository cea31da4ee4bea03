package dto

type AskRequest struct {
	Question string `json:"question" validate:"required_without=RunId,max=4000"`
	RunId    string `json:"run_id,omitempty" validate:"omitempty,uuid"`
}

type MessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type RunResponse struct {
	RunId            string       `json:"run_id"`
	Stage            string       `json:"stage"`
	Question         string       `json:"question,omitempty"`
	SearchQuery      string       `json:"search_query,omitempty"`
	DocumentCount    int          `json:"document_count"`
	DocumentPortions []string     `json:"document_portions,omitempty"`
	Answer           string       `json:"answer,omitempty"`
	Messages         []MessageDTO `json:"messages"`
}
