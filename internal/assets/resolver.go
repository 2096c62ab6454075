package assets

// AssetResolver reads from an override directory first and falls back to
// the embedded assets for anything the directory does not provide. Only
// not-found errors fall through; a broken override surfaces as is.
type AssetResolver struct {
	chain []AssetLoader
}

// NewAssetResolver returns a resolver over dir. An empty dir means embedded
// assets only.
func NewAssetResolver(dir string) (*AssetResolver, error) {
	r := &AssetResolver{}
	if dir != "" {
		custom, err := NewFilesystemLoader(dir)
		if err != nil {
			return nil, err
		}
		r.chain = append(r.chain, custom)
	}
	r.chain = append(r.chain, NewEmbeddedLoader())
	return r, nil
}

// Override returns the override directory, or "" for embedded only.
func (r *AssetResolver) Override() string {
	if fl, ok := r.chain[0].(*FilesystemLoader); ok {
		return fl.Dir()
	}
	return ""
}

// Close releases the override directory.
func (r *AssetResolver) Close() error {
	if fl, ok := r.chain[0].(*FilesystemLoader); ok {
		return fl.Close()
	}
	return nil
}

func (r *AssetResolver) LoadStyle(name string) (string, error) {
	return firstFound(r.chain, func(l AssetLoader) (string, error) { return l.LoadStyle(name) })
}

func (r *AssetResolver) LoadTemplateSet(name string) (*TemplateSet, error) {
	return firstFound(r.chain, func(l AssetLoader) (*TemplateSet, error) { return l.LoadTemplateSet(name) })
}

func (r *AssetResolver) LoadPage(name string) (string, error) {
	return firstFound(r.chain, func(l AssetLoader) (string, error) { return l.LoadPage(name) })
}

func firstFound[T any](chain []AssetLoader, load func(AssetLoader) (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for _, l := range chain {
		v, err = load(l)
		if err == nil || !isNotFound(err) {
			return v, err
		}
	}
	return v, err
}

var _ AssetLoader = (*AssetResolver)(nil)
