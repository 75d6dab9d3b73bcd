package nodes

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/user"
	"runtime"

	"github.com/dshills/workflow-go/workflow"
)

// SystemInfo reports facts about the host.
//
// Parameters: infoType ("all", "hardware", "software" or "network").
type SystemInfo struct {
	workflow.Base
	cfg *config
}

// NewSystemInfo creates a SystemInfo node.
func NewSystemInfo(opts ...Option) *SystemInfo { return newSystemInfo(newConfig(opts...)) }

func newSystemInfo(cfg *config) *SystemInfo {
	n := &SystemInfo{Base: workflow.NewBase(TypeSystemInfo, "Get System Info"), cfg: cfg}
	n.Params().Set("infoType", "all")
	return n
}

// Validate checks the info type.
func (n *SystemInfo) Validate() workflow.ValidationResult {
	switch n.Params().String("infoType", "all") {
	case "all", "hardware", "software", "network":
		return workflow.Valid()
	}
	return workflow.Invalid("Info type must be one of: all, hardware, software, network")
}

// Execute gathers the requested facts.
func (n *SystemInfo) Execute(ctx context.Context, ec *workflow.ExecutionContext) workflow.ExecutionResult {
	infoType := n.Params().String("infoType", "all")
	ec.Log("Gathering system information: " + infoType)

	out := map[string]any{"infoType": infoType}
	all := infoType == "all"

	if all || infoType == "network" {
		host, err := os.Hostname()
		if err != nil {
			return workflow.Failed("System info failed: "+err.Error(), err)
		}
		out["computerName"] = host
		out["addresses"] = interfaceAddrs()
	}
	if all || infoType == "hardware" {
		out["arch"] = runtime.GOARCH
		out["cpus"] = runtime.NumCPU()
	}
	if all || infoType == "software" {
		out["osVersion"] = runtime.GOOS
		out["goVersion"] = runtime.Version()
	}
	if all {
		if u, err := user.Current(); err == nil {
			out["userName"] = u.Username
		}
	}

	return workflow.Succeeded(fmt.Sprintf("System info retrieved: %s", infoType), n.cfg.stamp(out))
}

// interfaceAddrs lists the non-loopback unicast addresses of the host.
func interfaceAddrs() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		out = append(out, ipnet.IP.String())
	}
	return out
}
