package config

import "time"

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, channelID, apiURL string) *Slack {
	return &Slack{
		botToken:  botToken,
		channelID: channelID,
		apiURL:    apiURL,
	}
}

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

// NewStoreForTest creates a Store config for testing purposes
func NewStoreForTest(backend, path string) *Store {
	return &Store{backend: backend, path: path}
}

// NewMirrorForTest creates a Mirror config for testing purposes
func NewMirrorForTest(backend, path string) *Mirror {
	return &Mirror{backend: backend, path: path}
}

// NewGitHubMirrorForTest creates a Mirror config using the GitHub backend
func NewGitHubMirrorForTest(repository, token string) *Mirror {
	return &Mirror{
		backend: "github",
		path:    "anzen/ledger.json",
		GitHub: GitHub{
			repository: repository,
			branch:     "main",
			token:      token,
		},
	}
}

// NewNotionForTest creates a Notion config for testing purposes
func NewNotionForTest(token, databaseID string) *Notion {
	return &Notion{token: token, databaseID: databaseID}
}

// NewSyncForTest creates a Sync config for testing purposes
func NewSyncForTest(timeout time.Duration, attempts int, backoff time.Duration) *Sync {
	return &Sync{timeout: timeout, attempts: attempts, backoff: backoff}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}
