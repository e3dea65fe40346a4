// File: core/config/deployment.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/momentics/flowcore/core/errs"
	"github.com/momentics/flowcore/core/scheduler"
)

// YieldMode mirrors scheduler.YieldMode as a YAML-friendly string enum
// ("spin", "hybrid", "cooperative"), since scheduler.YieldMode's int
// values aren't a stable wire representation.
type YieldMode string

const (
	YieldSpin        YieldMode = "spin"
	YieldHybrid      YieldMode = "hybrid"
	YieldCooperative YieldMode = "cooperative"
)

func (m YieldMode) resolve() (scheduler.YieldMode, error) {
	switch m {
	case "", YieldSpin:
		return scheduler.YieldSpin, nil
	case YieldHybrid:
		return scheduler.YieldHybrid, nil
	case YieldCooperative:
		return scheduler.YieldCooperative, nil
	default:
		return 0, errs.New(errs.KindInvalidArgument, "unknown yield_mode").WithContext("value", string(m))
	}
}

// SchedulerDeployment is a topology's static deployment config (§10.3): the
// thread count, CPU affinity mask, NUMA policy, and yield mode a Scheduler
// is started with. Unmarshaled directly from YAML.
type SchedulerDeployment struct {
	NumThreads       int       `yaml:"num_threads"`
	AffinityMask     []int     `yaml:"affinity_mask"`
	NUMANode         int       `yaml:"numa_node"`
	YieldMode        YieldMode `yaml:"yield_mode"`
	PollThreshold    int       `yaml:"poll_threshold"`
	Priority         int       `yaml:"priority"`
	DefaultTimeoutNs uint64    `yaml:"default_timeout_ns"`
}

// Deployment is the root static deployment document for one topology.
type Deployment struct {
	Topology  string              `yaml:"topology"`
	Scheduler SchedulerDeployment `yaml:"scheduler"`
}

// LoadDeploymentFile reads and parses a YAML deployment document from path.
func LoadDeploymentFile(path string) (*Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deployment config %s: %w", path, err)
	}
	return ParseDeployment(data)
}

// ParseDeployment parses a YAML deployment document from raw bytes.
func ParseDeployment(data []byte) (*Deployment, error) {
	var d Deployment
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse deployment config: %w", err)
	}
	return &d, nil
}

// SchedulerConfig builds a scheduler.Config from the parsed deployment.
func (d *Deployment) SchedulerConfig() (scheduler.Config, error) {
	mode, err := d.Scheduler.YieldMode.resolve()
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		NumThreads:       d.Scheduler.NumThreads,
		AffinityMask:     d.Scheduler.AffinityMask,
		NUMANode:         d.Scheduler.NUMANode,
		YieldMode:        mode,
		PollThreshold:    d.Scheduler.PollThreshold,
		Priority:         d.Scheduler.Priority,
		DefaultTimeoutNs: d.Scheduler.DefaultTimeoutNs,
	}, nil
}
