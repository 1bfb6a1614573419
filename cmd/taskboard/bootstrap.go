package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/white6md/taskboard/internal/config"
)

// ensureServerBootstrap prompts for missing server settings before the TUI starts
// and persists the answers to the config file.
func ensureServerBootstrap(paths resolvedPaths, cfg config.Config, input io.Reader, output io.Writer) (config.Config, error) {
	if strings.TrimSpace(cfg.Server.BaseURL) != "" && strings.TrimSpace(cfg.Server.ProjectID) != "" {
		return cfg, nil
	}
	if input == nil {
		return config.Config{}, errors.New("bootstrap input is required")
	}
	if output == nil {
		output = io.Discard
	}

	reader := bufio.NewReader(input)
	_, _ = fmt.Fprintln(output, "taskboard setup required")
	_, _ = fmt.Fprintln(output, "Please provide the server the board should sync with.")
	baseURL := strings.TrimSpace(cfg.Server.BaseURL)
	for baseURL == "" {
		raw, err := promptRequiredValue(reader, output, "Server base URL: ", "server base url is required")
		if err != nil {
			return config.Config{}, err
		}
		if err := validateBaseURL(raw); err != nil {
			_, _ = fmt.Fprintln(output, err)
			continue
		}
		baseURL = raw
	}
	projectID := strings.TrimSpace(cfg.Server.ProjectID)
	if projectID == "" {
		var err error
		projectID, err = promptRequiredValue(reader, output, "Project id: ", "project id is required")
		if err != nil {
			return config.Config{}, err
		}
	}
	_, _ = fmt.Fprintln(output)

	if err := config.UpsertServer(paths.configPath, baseURL, projectID); err != nil {
		return config.Config{}, fmt.Errorf("persist server config: %w", err)
	}
	cfg.Server.BaseURL = baseURL
	cfg.Server.ProjectID = projectID
	return cfg, nil
}

// promptRequiredValue reads lines until one is non-empty.
func promptRequiredValue(reader *bufio.Reader, output io.Writer, prompt, emptyErr string) (string, error) {
	for {
		_, _ = fmt.Fprint(output, prompt)
		line, err := reader.ReadString('\n')
		value := strings.TrimSpace(line)
		if value != "" {
			return value, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("bootstrap cancelled: %s", emptyErr)
			}
			return "", fmt.Errorf("read bootstrap input: %w", err)
		}
		_, _ = fmt.Fprintln(output, emptyErr)
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid server base url %q: expected http(s)://host", raw)
	}
	return nil
}
