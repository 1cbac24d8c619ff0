package resource

import (
	"SheetReports/internal/logger"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Pinger is a dependency whose liveness can be probed, such as the data store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ResourceManager pings the registered resources on every heartbeat and
// audits each transition between reachable and unreachable.
type ResourceManager struct {
	resources         map[string]Pinger
	status            map[string]error
	mu                sync.RWMutex
	stopChan          chan struct{}
	heartbeatInterval time.Duration
	log               *logger.Logger
}

func NewResourceManagerService(cfg map[string]interface{}, resources map[string]Pinger) *ResourceManager {
	interval := 30 * time.Second // default
	if val, ok := cfg["heartbeat_interval"]; ok {
		switch v := val.(type) {
		case string:
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				interval = d
			}
		case int:
			interval = time.Duration(v) * time.Second
		case float64:
			interval = time.Duration(v) * time.Second
		}
	}
	rm := &ResourceManager{
		resources:         make(map[string]Pinger),
		status:            make(map[string]error),
		stopChan:          make(chan struct{}),
		heartbeatInterval: interval,
		log:               logger.New("resources"),
	}
	for k, p := range resources {
		if p != nil {
			rm.resources[k] = p
		}
	}
	return rm
}

func (rm *ResourceManager) Name() string { return "resourcemanager" }

func (rm *ResourceManager) Start() error {
	logger.Audit(fmt.Sprintf("ResourceManager started, heartbeat every %s", rm.heartbeatInterval))
	go rm.heartbeatLoop()
	return nil
}

func (rm *ResourceManager) Stop() error {
	close(rm.stopChan)
	return nil
}

func (rm *ResourceManager) heartbeatLoop() {
	ticker := time.NewTicker(rm.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), rm.heartbeatInterval)
			rm.Check(ctx)
			cancel()
		}
	}
}

// Check pings every resource once and returns the failures by name.
func (rm *ResourceManager) Check(ctx context.Context) map[string]error {
	rm.mu.RLock()
	probes := make(map[string]Pinger, len(rm.resources))
	for k, p := range rm.resources {
		probes[k] = p
	}
	rm.mu.RUnlock()

	failed := make(map[string]error)
	for _, key := range sortedKeys(probes) {
		err := probes[key].Ping(ctx)
		if err != nil {
			failed[key] = err
		}

		rm.mu.Lock()
		prev, seen := rm.status[key]
		rm.status[key] = err
		rm.mu.Unlock()

		switch {
		case err != nil && (!seen || prev == nil):
			logger.Audit(fmt.Sprintf("[ResourceManager] %s unreachable: %v", key, err))
		case err == nil && seen && prev != nil:
			logger.Audit(fmt.Sprintf("[ResourceManager] %s reachable again", key))
		case err != nil:
			rm.log.Debugf("%s still unreachable: %v", key, err)
		}
	}
	return failed
}

// Healthy reports whether the last heartbeat reached key.
func (rm *ResourceManager) Healthy(key string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	err, seen := rm.status[key]
	return seen && err == nil
}

func (rm *ResourceManager) AddResource(key string, resource Pinger) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.resources[key] = resource
}

func (rm *ResourceManager) GetResource(key string) (Pinger, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	resource, exists := rm.resources[key]
	return resource, exists
}

func (rm *ResourceManager) RemoveResource(key string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.resources, key)
	delete(rm.status, key)
}

func (rm *ResourceManager) ListResources() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return sortedKeys(rm.resources)
}

func sortedKeys(m map[string]Pinger) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
