package assets

import "errors"

// AssetResolver looks assets up in a custom directory first and falls back
// to the embedded set when the custom directory lacks them. Validation and
// read errors from the custom directory are returned as is.
type AssetResolver struct {
	custom   *FilesystemLoader
	embedded *EmbeddedLoader
}

// Compile-time interface check.
var _ AssetLoader = (*AssetResolver)(nil)

// NewAssetResolver creates an AssetResolver. An empty customDir means
// embedded assets only.
func NewAssetResolver(customDir string) (*AssetResolver, error) {
	r := &AssetResolver{embedded: NewEmbeddedLoader()}
	if customDir == "" {
		return r, nil
	}
	custom, err := NewFilesystemLoader(customDir)
	if err != nil {
		return nil, err
	}
	r.custom = custom
	return r, nil
}

// LoadStyle resolves a style by name.
func (r *AssetResolver) LoadStyle(name string) (string, error) {
	return r.resolve(AssetLoader.LoadStyle, name)
}

// LoadTemplate resolves a base template by name.
func (r *AssetResolver) LoadTemplate(name string) (string, error) {
	return r.resolve(AssetLoader.LoadTemplate, name)
}

// HasCustomLoader reports whether a custom directory is configured.
func (r *AssetResolver) HasCustomLoader() bool {
	return r.custom != nil
}

func (r *AssetResolver) resolve(load func(AssetLoader, string) (string, error), name string) (string, error) {
	if r.custom == nil {
		return load(r.embedded, name)
	}
	content, err := load(r.custom, name)
	if err == nil || !isNotFound(err) {
		return content, err
	}
	return load(r.embedded, name)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrStyleNotFound) || errors.Is(err, ErrTemplateNotFound)
}
