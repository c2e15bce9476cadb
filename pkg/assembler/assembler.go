package assembler

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/overlay"
	"github.com/cuemby/burrow/pkg/types"
)

// Input is everything needed to render the configuration of one role
type Input struct {
	Identity types.ClusterIdentity
	Plan     *types.TopologyPlan
	Role     types.NodeRole

	// DiscoveryDomain is the DNS suffix group names resolve under.
	// Defaults to "<cluster name>.internal".
	DiscoveryDomain string

	// Features are applied in order, after the role overlay
	Features []overlay.Overlay

	Heap     HeapOptions
	JVMFlags []string

	// UserOverlay is appended verbatim, last
	UserOverlay string
}

// PortSetting is the listening port key. The node supervisor rewrites it
// line by line in the rendered file, so it must stay a flat top-level key.
const PortSetting = "http.port"

// Assembler renders per-role configuration documents
type Assembler struct {
	store *overlay.Store
}

// NewAssembler creates an assembler reading templates from store
func NewAssembler(store *overlay.Store) *Assembler {
	if store == nil {
		store = overlay.DefaultStore()
	}
	return &Assembler{store: store}
}

// Assemble renders the configuration for in.Role.
//
// The merge order is fixed: base template, cluster identity, discovery
// (multi-node only), role overlay, feature overlays, heap settings, and
// finally the user overlay appended as raw text. Output is deterministic,
// so identical input yields byte-identical documents.
func (a *Assembler) Assemble(in Input) (*types.RenderedConfig, error) {
	if in.Plan == nil {
		return nil, fmt.Errorf("no topology plan for role %s", in.Role)
	}
	if in.Plan.Group(in.Role) == nil {
		return nil, fmt.Errorf("role %s is not part of the topology plan", in.Role)
	}

	logger := log.WithRole(string(in.Role))

	base, err := a.store.Base(in.Plan.SingleNode)
	if err != nil {
		return nil, err
	}

	overlays := []overlay.Overlay{
		base,
		identityOverlay(in.Identity),
	}

	if !in.Plan.SingleNode {
		overlays = append(overlays, discoveryOverlay(in))

		role, err := a.store.Role(in.Role, in.Plan.Seed.Role)
		if err != nil {
			return nil, err
		}
		if role != nil {
			overlays = append(overlays, role)
		}
	}

	overlays = append(overlays, in.Features...)

	heapLines, err := in.Heap.Options()
	if err != nil {
		return nil, err
	}

	if in.UserOverlay != "" {
		overlays = append(overlays, overlay.NewLiteral("user", in.UserOverlay))
	}

	doc := overlay.NewDocument()
	if err := doc.Apply(overlays...); err != nil {
		return nil, err
	}

	if err := requireFlat(doc, in.UserOverlay, PortSetting); err != nil {
		return nil, err
	}

	rendered, err := doc.Render()
	if err != nil {
		return nil, err
	}

	jvm := make([]string, 0, len(in.JVMFlags)+len(heapLines))
	jvm = append(jvm, in.JVMFlags...)
	jvm = append(jvm, heapLines...)

	logger.Debug().
		Strs("overlays", doc.Applied()).
		Int("bytes", len(rendered)).
		Msg("Configuration assembled")

	return &types.RenderedConfig{
		Role:       in.Role,
		Document:   rendered,
		JVMOptions: jvm,
	}, nil
}

// AssembleAll renders every role in plan, in plan order. build returns the
// input for one role, so per-role settings such as the heap budget follow
// each group's instance shape.
func (a *Assembler) AssembleAll(plan *types.TopologyPlan, build func(types.NodeRole) Input) ([]*types.RenderedConfig, error) {
	if plan == nil {
		return nil, fmt.Errorf("no topology plan")
	}
	var out []*types.RenderedConfig
	for _, role := range plan.Roles() {
		in := build(role)
		in.Plan = plan
		in.Role = role
		cfg, err := a.Assemble(in)
		if err != nil {
			return nil, fmt.Errorf("failed to assemble %s: %w", role, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// requireFlat rejects key when it appears in nested form, e.g.
// http: {port: 9200} for http.port, in the merged tree or the user overlay
func requireFlat(doc *overlay.Document, user, key string) error {
	for _, prefix := range dottedPrefixes(key) {
		v, ok := doc.Get(prefix)
		if ok && nestedKey(v, key[len(prefix)+1:]) {
			return fmt.Errorf("setting %s is nested under %s, write it as a flat %s key", key, prefix, key)
		}
	}

	if user == "" {
		return nil
	}
	parsed := make(map[string]any)
	if err := yaml.Unmarshal([]byte(user), &parsed); err != nil {
		// left for the service to reject
		return nil
	}
	for _, prefix := range dottedPrefixes(key) {
		if nestedKey(parsed[prefix], key[len(prefix)+1:]) {
			return fmt.Errorf("user overlay nests %s under %s, write it as a flat %s key", key, prefix, key)
		}
	}
	return nil
}

// nestedKey reports whether key is reachable from v through one or more
// mappings, splitting key at any dot
func nestedKey(v any, key string) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if _, ok := m[key]; ok {
		return true
	}
	for _, prefix := range dottedPrefixes(key) {
		if nestedKey(m[prefix], key[len(prefix)+1:]) {
			return true
		}
	}
	return false
}

// dottedPrefixes returns "a" and "a.b" for "a.b.c"
func dottedPrefixes(key string) []string {
	var out []string
	for i := range key {
		if key[i] == '.' {
			out = append(out, key[:i])
		}
	}
	return out
}

// RenderJVMOptions formats option lines for the flat options file
func RenderJVMOptions(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func identityOverlay(id types.ClusterIdentity) overlay.Overlay {
	return overlay.NewStructured("cluster-identity", map[string]any{
		"cluster.name": id.Name(),
	})
}

// discoveryOverlay points every node at the seed and, when one exists, the
// manager group. The seed is the only initial cluster-manager node.
func discoveryOverlay(in Input) overlay.Overlay {
	domain := in.DiscoveryDomain
	if domain == "" {
		domain = in.Identity.Name() + ".internal"
	}

	hosts := []any{hostFor(types.NodeRoleSeed, in.Plan, domain)}
	if in.Plan.Group(types.NodeRoleManager) != nil {
		hosts = append(hosts, hostFor(types.NodeRoleManager, in.Plan, domain))
	}

	return overlay.NewStructured("discovery", map[string]any{
		"discovery.seed_hosts":                  hosts,
		"cluster.initial_cluster_manager_nodes": []any{SeedNodeName},
	})
}

// SeedNodeName is the node.name the seed overlays assign
const SeedNodeName = "seed-node"

func hostFor(role types.NodeRole, plan *types.TopologyPlan, domain string) string {
	return plan.Group(role).Name + "." + domain
}
