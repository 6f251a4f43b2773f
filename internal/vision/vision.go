// Package vision suggests a name and description for a photo of a piece of
// equipment so inventory editors do not have to type them by hand.
package vision

import (
	"context"
	"errors"
	"io"
)

// SuggestPrompt is the shared prompt used by all vision adapters.
const SuggestPrompt = `This photo shows one piece of equipment stored on a fire appliance
(for example a hose, a first aid kit, a torch or a hand tool).
Reply with a single line in the format: name | short description
The name should be two to four words. The description should say what it is
used for or how to recognise it, in under fifteen words.`

var ErrEmptyImage = errors.New("empty image")

type Describer interface {
	Describe(ctx context.Context, r io.Reader, mimeType string) (*Suggestion, error)
}

type Suggestion struct {
	Name        string `json:"name"`
	Desc        string `json:"desc"`
	RawResponse string `json:"-"`
}

// ReadImage reads the whole image, rejecting empty input.
func ReadImage(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}
