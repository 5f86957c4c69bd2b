package logging

import (
	"bytes"
	"io"
)

// redactWriter is an io.Writer that redacts sensitive information from logs.
type redactWriter struct {
	Writer  io.Writer
	Secrets []string
}

// Write implements the io.Writer interface for redactWriter.
func (rw *redactWriter) Write(p []byte) (n int, err error) {
	redactedData := redactSecrets(p, rw.Secrets)
	n, err = rw.Writer.Write(redactedData)
	if err != nil {
		return n, err
	}
	return n, nil
}

// redactSecrets replaces sensitive information in the log data with "[REDACTED]".
func redactSecrets(data []byte, secrets []string) []byte {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		data = bytes.ReplaceAll(data, []byte(secret), []byte("[REDACTED]"))
	}
	return data
}
