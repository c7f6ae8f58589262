package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// WhoisReadLimitBytes caps how many bytes of a WHOIS response we accumulate.
	// Registries occasionally stream abuse notices far beyond the record itself.
	WhoisReadLimitBytes = 256 * 1024
	// PageFetchLimitBytes caps the body size of auxiliary page fetches
	// (privacy policy, contacts) so a misbehaving server cannot balloon an audit.
	PageFetchLimitBytes = 2 * 1024 * 1024
	// RenderSettleDelay is how long the renderer waits after the page is ready
	// before snapshotting, so client-side banners and widgets have appeared.
	RenderSettleDelay = 2 * time.Second
	// TLSSoonExpiryWindow warns when a certificate expires inside this window.
	TLSSoonExpiryWindow = 30 * 24 * time.Hour
)
