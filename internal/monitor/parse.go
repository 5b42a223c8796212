// Package monitor 通过一次远程命令采集 /proc 与 df 输出，并解析为监控数据
package monitor

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"

	"myssh/internal/models"
)

// 各段输出之间的分隔标记
const (
	secStat1   = "==STAT1=="
	secStat2   = "==STAT2=="
	secNproc   = "==NPROC=="
	secCPUInfo = "==CPUINFO=="
	secLoadavg = "==LOADAVG=="
	secMeminfo = "==MEMINFO=="
	secDF      = "==DF=="
	secNetDev  = "==NETDEV=="
)

// Script 远程执行的采集脚本；两次读取 /proc/stat 间隔 0.5 秒用于计算 CPU 使用率
const Script = "LC_ALL=C; export LC_ALL; " +
	"echo '" + secStat1 + "'; cat /proc/stat; sleep 0.5; " +
	"echo '" + secStat2 + "'; cat /proc/stat; " +
	"echo '" + secNproc + "'; nproc 2>/dev/null; " +
	"echo '" + secCPUInfo + "'; grep -m1 'cpu MHz' /proc/cpuinfo 2>/dev/null; " +
	"echo '" + secLoadavg + "'; cat /proc/loadavg; " +
	"echo '" + secMeminfo + "'; cat /proc/meminfo; " +
	"echo '" + secDF + "'; df -PTk 2>/dev/null; " +
	"echo '" + secNetDev + "'; cat /proc/net/dev"

// 不统计的伪文件系统
var skipFS = map[string]bool{
	"tmpfs": true, "devtmpfs": true, "squashfs": true, "overlay": true,
	"proc": true, "sysfs": true, "efivarfs": true, "devfs": true,
}

// Counters 网卡累计字节数（不含 lo）
type Counters struct {
	RX uint64
	TX uint64
}

// Parse 解析 Script 的输出；网络速率留给调用方根据上一次采样计算
func Parse(output string) (*models.MonitorSample, Counters, error) {
	sec := splitSections(output)
	if sec[secStat1] == "" || sec[secStat2] == "" {
		return nil, Counters{}, fmt.Errorf("monitor output missing /proc/stat")
	}
	if sec[secMeminfo] == "" {
		return nil, Counters{}, fmt.Errorf("monitor output missing /proc/meminfo")
	}

	usage, cores := parseCPU(sec[secStat1], sec[secStat2])
	cpu := models.CPUInfo{
		Usage:       usage,
		Cores:       len(cores),
		Frequency:   parseMHz(sec[secCPUInfo]),
		LoadAverage: parseLoadavg(sec[secLoadavg]),
		CoresUsage:  cores,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(sec[secNproc])); err == nil && n > 0 {
		cpu.Cores = n
	}

	counters := parseNetDev(sec[secNetDev])
	return &models.MonitorSample{
		CPU:    cpu,
		Memory: parseMeminfo(sec[secMeminfo]),
		Disk:   parseDF(sec[secDF]),
		Network: models.NetworkInfo{
			DownloadTotal: counters.RX,
			UploadTotal:   counters.TX,
		},
	}, counters, nil
}

func splitSections(output string) map[string]string {
	out := make(map[string]string)
	var cur string
	var b strings.Builder
	flush := func() {
		if cur != "" {
			out[cur] = b.String()
		}
		b.Reset()
	}
	sc := bufio.NewScanner(strings.NewReader(output))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "==") && strings.HasSuffix(trimmed, "==") && len(trimmed) > 4 {
			flush()
			cur = trimmed
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	flush()
	return out
}

type cpuTimes struct {
	idle  uint64
	total uint64
}

// readStat 返回汇总行与各核心的时间片
func readStat(s string) (cpuTimes, []cpuTimes) {
	var all cpuTimes
	var cores []cpuTimes
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || !strings.HasPrefix(fields[0], "cpu") {
			continue
		}
		var t cpuTimes
		for i, f := range fields[1:] {
			if i >= 8 { // guest 已计入 user
				break
			}
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				continue
			}
			t.total += v
			if i == 3 || i == 4 { // idle, iowait
				t.idle += v
			}
		}
		if fields[0] == "cpu" {
			all = t
		} else {
			cores = append(cores, t)
		}
	}
	return all, cores
}

func usageBetween(a, b cpuTimes) float64 {
	if b.total <= a.total {
		return 0
	}
	dt := float64(b.total - a.total)
	di := float64(b.idle) - float64(a.idle)
	return round1(math.Max(0, math.Min(100, (dt-di)/dt*100)))
}

func parseCPU(first, second string) (float64, []float64) {
	a, ca := readStat(first)
	b, cb := readStat(second)
	cores := make([]float64, 0, len(cb))
	for i := range cb {
		if i < len(ca) {
			cores = append(cores, usageBetween(ca[i], cb[i]))
		} else {
			cores = append(cores, 0)
		}
	}
	return usageBetween(a, b), cores
}

func parseMHz(s string) float64 {
	_, v, ok := strings.Cut(s, ":")
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return round1(f)
}

// parseLoadavg "0.52 0.58 0.59 1/467 12345" -> "0.52, 0.58, 0.59"
func parseLoadavg(s string) string {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return ""
	}
	return strings.Join(fields[:3], ", ")
}

func parseMeminfo(s string) models.MemoryInfo {
	kv := make(map[string]uint64)
	for _, line := range strings.Split(s, "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(v)
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		kv[strings.TrimSpace(k)] = n * 1024
	}

	total := kv["MemTotal"]
	available, ok := kv["MemAvailable"]
	if !ok {
		available = kv["MemFree"] + kv["Buffers"] + kv["Cached"]
	}
	if available > total {
		available = total
	}
	mem := models.MemoryInfo{
		Total:     total,
		Used:      total - available,
		Available: available,
	}
	if cached, ok := kv["Cached"]; ok {
		mem.Cached = &cached
	}
	return mem
}

// parseDF 解析 df -PTk：Filesystem Type 1024-blocks Used Available Capacity Mounted-on
func parseDF(s string) []models.DiskInfo {
	disks := make([]models.DiskInfo, 0)
	seen := make(map[string]bool)
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 7 || fields[0] == "Filesystem" {
			continue
		}
		if skipFS[fields[1]] {
			continue
		}
		total, err1 := strconv.ParseUint(fields[2], 10, 64)
		used, err2 := strconv.ParseUint(fields[3], 10, 64)
		avail, err3 := strconv.ParseUint(fields[4], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil || total == 0 {
			continue
		}
		mount := strings.Join(fields[6:], " ")
		if seen[mount] {
			continue
		}
		seen[mount] = true
		disks = append(disks, models.DiskInfo{
			Mount:      mount,
			Filesystem: fields[1],
			Total:      total * 1024,
			Used:       used * 1024,
			Available:  avail * 1024,
			Usage:      round1(float64(used) / float64(total) * 100),
		})
	}
	return disks
}

func parseNetDev(s string) Counters {
	var c Counters
	for _, line := range strings.Split(s, "\n") {
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "lo" || strings.Contains(name, "|") {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 9 {
			continue
		}
		rx, err1 := strconv.ParseUint(fields[0], 10, 64)
		tx, err2 := strconv.ParseUint(fields[8], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		c.RX += rx
		c.TX += tx
	}
	return c
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
