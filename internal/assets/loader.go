package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// AssetLoader loads stylesheets, EPUB template sets and web pages by name.
type AssetLoader interface {
	// LoadStyle returns styles/<name>.css.
	LoadStyle(name string) (string, error)

	// LoadTemplateSet returns the files of epub/<name>/.
	LoadTemplateSet(name string) (*TemplateSet, error)

	// LoadPage returns web/<name>.html.
	LoadPage(name string) (string, error)
}

// fsLoader implements AssetLoader over any tree with the styles/, epub/
// and web/ layout.
type fsLoader struct {
	fsys fs.FS
}

func (l fsLoader) LoadStyle(name string) (string, error) {
	return l.readNamed("styles/", name, ".css", ErrStyleNotFound)
}

func (l fsLoader) LoadPage(name string) (string, error) {
	return l.readNamed("web/", name, ".html", ErrTemplateNotFound)
}

func (l fsLoader) LoadTemplateSet(name string) (*TemplateSet, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}

	ts := &TemplateSet{Name: name}
	var missing []string
	for _, tf := range templateFiles {
		content, err := fs.ReadFile(l.fsys, "epub/"+name+"/"+tf.file)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			missing = append(missing, tf.file)
		case err != nil:
			return nil, fmt.Errorf("%w: %s/%s: %v", ErrAssetRead, name, tf.file, err)
		default:
			*tf.field(ts) = string(content)
		}
	}

	switch len(missing) {
	case 0:
		return ts, nil
	case len(templateFiles):
		return nil, fmt.Errorf("%w: %q", ErrTemplateSetNotFound, name)
	default:
		return nil, fmt.Errorf("%w: %q lacks %s", ErrIncompleteTemplateSet, name, strings.Join(missing, ", "))
	}
}

func (l fsLoader) readNamed(dir, name, ext string, notFound error) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}
	content, err := fs.ReadFile(l.fsys, dir+name+ext)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", notFound, name)
		}
		return "", fmt.Errorf("%w: %s%s%s: %v", ErrAssetRead, dir, name, ext, err)
	}
	return string(content), nil
}
