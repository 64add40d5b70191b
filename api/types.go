package api

import "github.com/Eduardo-Nightborn/TaskMaster/domain"

type moveRequest struct {
	Source      domain.Status `json:"source"`
	Destination domain.Status `json:"destination"`
	NewIndex    int           `json:"newIndex"`
}

type reorderRequest struct {
	StartIndex int `json:"startIndex"`
	EndIndex   int `json:"endIndex"`
}

type errorResponse struct {
	Error string `json:"error"`
	// Pending lists the dependency ids blocking a move into Done.
	Pending []string `json:"pending,omitempty"`
}

type importResponse struct {
	Imported   int `json:"imported"`
	New        int `json:"new"`
	Duplicates int `json:"duplicates"`
}
