package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/mitchellh/hashstructure/v2"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketPlans   = []byte("plans")
	bucketRenders = []byte("renders")
)

// ErrPlanNotFound is returned by GetPlan for a cluster with no recorded plan
var ErrPlanNotFound = errors.New("plan not found")

// Status describes how a role's rendered configuration compares to the
// previously recorded render
type Status string

const (
	StatusNew       Status = "new"
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
	StatusRemoved   Status = "removed"
)

// PlanRecord is the stored fingerprint of a cluster's topology plan
type PlanRecord struct {
	Cluster    string
	Hash       uint64
	Groups     int
	RecordedAt time.Time
}

// RenderRecord is the stored fingerprint of one role's configuration
type RenderRecord struct {
	Cluster    string
	Role       types.NodeRole
	Hash       uint64
	RecordedAt time.Time
}

// Change is the outcome of recording one role
type Change struct {
	Role   types.NodeRole
	Status Status
}

// Ledger records what was last rendered for each cluster so re-provisioning
// can tell which roles actually changed
type Ledger struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates a ledger database at path
func Open(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPlans, bucketRenders} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db, now: time.Now}, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Fingerprint hashes any value structurally
func Fingerprint(v any) (uint64, error) {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to fingerprint: %w", err)
	}
	return h, nil
}

// Record stores the plan and rendered configs for cluster and reports, per
// role, whether the configuration is new, changed or unchanged since the
// last call. Roles recorded before but absent now are removed and reported.
func (l *Ledger) Record(cluster string, plan *types.TopologyPlan, configs []*types.RenderedConfig) (bool, []Change, error) {
	planHash, err := Fingerprint(plan)
	if err != nil {
		return false, nil, err
	}

	now := l.now()
	var (
		planChanged bool
		changes     []Change
	)

	err = l.db.Update(func(tx *bolt.Tx) error {
		plans := tx.Bucket(bucketPlans)

		var prev PlanRecord
		if data := plans.Get([]byte(cluster)); data == nil {
			planChanged = true
		} else if err := json.Unmarshal(data, &prev); err != nil {
			return fmt.Errorf("failed to decode plan record: %w", err)
		} else {
			planChanged = prev.Hash != planHash
		}

		data, err := json.Marshal(PlanRecord{Cluster: cluster, Hash: planHash, Groups: len(plan.Groups), RecordedAt: now})
		if err != nil {
			return err
		}
		if err := plans.Put([]byte(cluster), data); err != nil {
			return err
		}

		renders := tx.Bucket(bucketRenders)
		seen := make(map[string]bool)

		for _, cfg := range configs {
			hash, err := Fingerprint(cfg)
			if err != nil {
				return err
			}
			key := renderKey(cluster, cfg.Role)
			seen[string(key)] = true

			status := StatusNew
			if data := renders.Get(key); data != nil {
				var rec RenderRecord
				if err := json.Unmarshal(data, &rec); err != nil {
					return fmt.Errorf("failed to decode render record: %w", err)
				}
				status = StatusUnchanged
				if rec.Hash != hash {
					status = StatusChanged
				}
			}

			data, err := json.Marshal(RenderRecord{Cluster: cluster, Role: cfg.Role, Hash: hash, RecordedAt: now})
			if err != nil {
				return err
			}
			if err := renders.Put(key, data); err != nil {
				return err
			}
			changes = append(changes, Change{Role: cfg.Role, Status: status})
		}

		var stale [][]byte
		prefix := []byte(cluster + "/")
		c := renders.Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			if seen[string(k)] {
				continue
			}
			var rec RenderRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode render record: %w", err)
			}
			stale = append(stale, append([]byte(nil), k...))
			changes = append(changes, Change{Role: rec.Role, Status: StatusRemoved})
		}
		for _, k := range stale {
			if err := renders.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	return planChanged, changes, nil
}

// Renders lists the recorded render fingerprints for cluster, sorted by role
func (l *Ledger) Renders(cluster string) ([]*RenderRecord, error) {
	var records []*RenderRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		prefix := []byte(cluster + "/")
		c := tx.Bucket(bucketRenders).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var rec RenderRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	sort.Slice(records, func(i, j int) bool { return records[i].Role < records[j].Role })
	return records, err
}

// GetPlan returns the recorded plan fingerprint for cluster, or an error
// wrapping ErrPlanNotFound when the cluster was never recorded
func (l *Ledger) GetPlan(cluster string) (*PlanRecord, error) {
	var rec PlanRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPlans).Get([]byte(cluster))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrPlanNotFound, cluster)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func renderKey(cluster string, role types.NodeRole) []byte {
	return []byte(cluster + "/" + string(role))
}
