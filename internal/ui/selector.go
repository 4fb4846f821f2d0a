package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// bellSkipper implements an io.WriteCloser that skips the terminal bell character.
type bellSkipper struct {
	w io.Writer
}

func (bs *bellSkipper) Write(b []byte) (int, error) {
	const charBell = 7 // bell control character
	if len(b) == 1 && b[0] == charBell {
		return 0, nil
	}
	return bs.w.Write(b)
}

func (bs *bellSkipper) Close() error {
	return nil
}

// SelectProfileInteractively shows a searchable selector over the profiles
// that have a role to assume. Rendering goes to stderr so stdout stays clean
// for eval'd credential output.
func SelectProfileInteractively(profiles []string) (string, error) {
	if len(profiles) == 0 {
		return "", fmt.Errorf("no profiles with a role_arn found in the AWS config")
	}

	prompt := promptui.Select{
		Label: "Select the profile to assume:",
		Items: profiles,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "{{ \">\" | cyan }} {{ . | cyan | bold }}",
			Inactive: "   {{ . }}",
			Selected: "\U00002713 {{ . | cyan | bold }}",
		},
		Size:   15,
		Stdout: &bellSkipper{os.Stderr},
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(profiles[index]), strings.ToLower(strings.TrimSpace(input)))
		},
	}

	_, selected, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return selected, nil
}
