// Package spec loads the cluster spec file the provisioning CLI plans and
// renders from.
package spec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuemby/burrow/pkg/assembler"
	"github.com/cuemby/burrow/pkg/overlay"
	"github.com/cuemby/burrow/pkg/topology"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ClusterSpec is the operator-facing description of a cluster
type ClusterSpec struct {
	types.ClusterIdentity `yaml:",inline"`

	SingleNode      bool                                   `yaml:"singleNode"`
	Roles           types.RoleCounts                       `yaml:"roles"`
	Instances       map[types.NodeRole]types.GroupDefaults `yaml:"instances" validate:"dive"`
	DiscoveryDomain string                                 `yaml:"discoveryDomain" validate:"omitempty,hostname_rfc1123"`

	AutoHeap bool     `yaml:"autoHeap"`
	HeapSize string   `yaml:"heapSize"`
	JVMFlags []string `yaml:"jvmFlags" validate:"dive,startswith=-"`

	Features Features `yaml:"features"`

	UserOverlay     string `yaml:"userOverlay"`
	UserOverlayFile string `yaml:"userOverlayFile"`
}

// Features toggles optional configuration overlays
type Features struct {
	SecurityDisabled bool            `yaml:"securityDisabled"`
	RemoteStore      RemoteStoreSpec `yaml:"remoteStore"`
}

// RemoteStoreSpec configures remote-backed storage
type RemoteStoreSpec struct {
	Enabled    bool   `yaml:"enabled"`
	Repository string `yaml:"repository" validate:"required_if=Enabled true"`
	Bucket     string `yaml:"bucket" validate:"required_if=Enabled true"`
	BasePath   string `yaml:"basePath"`
	Region     string `yaml:"region" validate:"required_if=Enabled true"`
}

// Load reads and validates a spec file. A userOverlayFile is resolved
// relative to the spec file and read into UserOverlay.
func Load(path string) (*ClusterSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster spec: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if s.UserOverlayFile != "" {
		if s.UserOverlay != "" {
			return nil, fmt.Errorf("invalid cluster spec: userOverlay and userOverlayFile are mutually exclusive")
		}
		overlayPath := s.UserOverlayFile
		if !filepath.IsAbs(overlayPath) {
			overlayPath = filepath.Join(filepath.Dir(path), overlayPath)
		}
		raw, err := os.ReadFile(overlayPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read user overlay: %w", err)
		}
		s.UserOverlay = string(raw)
	}

	return s, nil
}

// Parse decodes and validates a spec document
func Parse(data []byte) (*ClusterSpec, error) {
	var s ClusterSpec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse cluster spec: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field constraints
func (s *ClusterSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid cluster spec: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid cluster spec: %w", err)
	}
	return nil
}

// Plan runs the topology planner over the spec's role counts
func (s *ClusterSpec) Plan() (*types.TopologyPlan, error) {
	return topology.NewPlanner(s.Instances).Plan(s.Roles, s.SingleNode)
}

// AssemblerInput builds the assembler input for role. The heap budget comes
// from the instance shape the role's group was planned with.
func (s *ClusterSpec) AssemblerInput(plan *types.TopologyPlan, role types.NodeRole) assembler.Input {
	var features []overlay.Overlay
	if rs := s.Features.RemoteStore; rs.Enabled {
		features = append(features, assembler.RemoteStore{
			Repository: rs.Repository,
			Bucket:     rs.Bucket,
			BasePath:   rs.BasePath,
			Region:     rs.Region,
		}.Overlay())
	}
	if s.Features.SecurityDisabled {
		features = append(features, assembler.SecurityDisabled())
	}

	return assembler.Input{
		Identity:        s.ClusterIdentity,
		Plan:            plan,
		Role:            role,
		DiscoveryDomain: s.DiscoveryDomain,
		Features:        features,
		Heap: assembler.HeapOptions{
			Auto:      s.AutoHeap,
			MemoryMiB: s.shape(role, plan.Seed.Role).MemoryMiB,
			Override:  s.HeapSize,
		},
		JVMFlags:    s.JVMFlags,
		UserOverlay: s.UserOverlay,
	}
}

func (s *ClusterSpec) shape(role types.NodeRole, seed types.SeedRole) types.GroupDefaults {
	switch role {
	case types.NodeRoleSeed:
		if seed == types.SeedRoleManager {
			return s.Instances[types.NodeRoleManager]
		}
		return s.Instances[types.NodeRoleData]
	case types.NodeRoleSingleNode:
		if d, ok := s.Instances[types.NodeRoleSingleNode]; ok {
			return d
		}
		return s.Instances[types.NodeRoleData]
	default:
		return s.Instances[role]
	}
}
