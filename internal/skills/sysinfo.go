package skills

import (
	"context"
	"fmt"
	"os"
	"runtime"

	log "log/slog"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"luna/internal/tool"
)

type Usage struct {
	MemTotal    uint64
	MemUsed     uint64
	MemPercent  float64
	DiskLabel   string
	DiskTotal   uint64
	DiskUsed    uint64
	DiskPercent float64
}

type StatsSource interface {
	Usage(ctx context.Context) (Usage, error)
}

// HostStats reads memory and system disk usage of this machine.
type HostStats struct{}

func systemDisk() (path, label string) {
	if runtime.GOOS == "windows" {
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		return drive + `\`, drive
	}
	return "/", "root"
}

func (HostStats) Usage(ctx context.Context) (Usage, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Usage{}, fmt.Errorf("memory: %w", err)
	}

	path, label := systemDisk()
	du, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return Usage{}, fmt.Errorf("disk %s: %w", path, err)
	}

	return Usage{
		MemTotal:    vm.Total,
		MemUsed:     vm.Total - vm.Available,
		MemPercent:  vm.UsedPercent,
		DiskLabel:   label,
		DiskTotal:   du.Total,
		DiskUsed:    du.Used,
		DiskPercent: du.UsedPercent,
	}, nil
}

func (u Usage) String() string {
	return fmt.Sprintf(
		"Memory used %s of %s, %.0f percent. Disk %s used %s of %s, %.0f percent.",
		humanize.IBytes(u.MemUsed), humanize.IBytes(u.MemTotal), u.MemPercent,
		u.DiskLabel, humanize.IBytes(u.DiskUsed), humanize.IBytes(u.DiskTotal), u.DiskPercent,
	)
}

func (s *Skills) SystemInfo(ctx context.Context, _ tool.Args) (tool.Result, error) {
	u, err := s.Stats.Usage(ctx)
	if err != nil {
		return tool.Result{}, tool.Internal("Sorry, I couldn't get system info.", "Could not get system info.", err)
	}

	log.Debug("System usage", "mem", u.MemPercent, "disk", u.DiskPercent)

	return tool.Say(u.String()), nil
}
