package assembler

import (
	"fmt"

	"github.com/cuemby/burrow/pkg/overlay"
)

// RemoteStore describes the repository backing remote-backed storage
type RemoteStore struct {
	Repository string
	Bucket     string
	BasePath   string
	Region     string
}

// Overlay returns the node attributes enabling remote-backed segment,
// translog and cluster state storage in one S3 repository.
func (r RemoteStore) Overlay() overlay.Overlay {
	prefix := fmt.Sprintf("node.attr.remote_store.repository.%s", r.Repository)

	values := map[string]any{
		"node.attr.remote_store.segment.repository":  r.Repository,
		"node.attr.remote_store.translog.repository": r.Repository,
		"node.attr.remote_store.state.repository":    r.Repository,
		prefix + ".type":                             "s3",
		prefix + ".settings.bucket":                  r.Bucket,
		prefix + ".settings.region":                  r.Region,
		"cluster.remote_store.state.enabled":         true,
	}
	if r.BasePath != "" {
		values[prefix+".settings.base_path"] = r.BasePath
	}

	return overlay.NewStructured("remote-store", values)
}

// SecurityDisabled turns off the security plugin
func SecurityDisabled() overlay.Overlay {
	return overlay.NewStructured("security-disabled", map[string]any{
		"plugins.security.disabled": true,
	})
}
