// Package domain contains core domain types for Prompt Forge.
package domain

// User is the mocked session identity. Any submitted login form produces one.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SavedPrompt is a prompt or response the user chose to keep.
type SavedPrompt struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Prompt    string `json:"prompt"`
	Timestamp string `json:"timestamp"`
}
