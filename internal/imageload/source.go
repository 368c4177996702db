package imageload

import (
	"context"
)

type uploadSource struct {
	name string
	data []byte
}

// Upload wraps the content of a file uploaded by the browser.
func Upload(name string, data []byte) Source {
	return &uploadSource{name: name, data: data}
}

func (s *uploadSource) Name() string { return s.name }

func (s *uploadSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.data, nil
}

type refSource struct {
	fetcher Fetcher
	ref     string
}

// Ref is a Source resolved through fetcher when read.
func Ref(fetcher Fetcher, ref string) Source {
	return &refSource{fetcher: fetcher, ref: ref}
}

func (s *refSource) Name() string { return s.ref }

func (s *refSource) Read(ctx context.Context) ([]byte, error) {
	return s.fetcher.Fetch(ctx, s.ref)
}
