package assets

import "errors"

// Sentinel errors for asset loading. The not-found kinds let AssetResolver
// fall back to embedded assets; every other error is returned as is.
var (
	ErrStyleNotFound         = errors.New("style not found")
	ErrTemplateNotFound      = errors.New("page template not found")
	ErrTemplateSetNotFound   = errors.New("epub template set not found")
	ErrIncompleteTemplateSet = errors.New("epub template set incomplete")

	// ErrInvalidAssetName rejects names with separators, dots or traversal.
	ErrInvalidAssetName = errors.New("invalid asset name")

	// ErrInvalidBasePath means the override directory cannot be opened.
	ErrInvalidBasePath = errors.New("invalid asset directory")

	// ErrAssetRead wraps I/O failures, including reads that would leave the
	// override directory through a symlink.
	ErrAssetRead = errors.New("failed to read asset")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrStyleNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrTemplateSetNotFound)
}
