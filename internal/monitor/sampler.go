package monitor

import (
	"sync"
	"time"

	"myssh/internal/models"
)

type point struct {
	at time.Time
	Counters
}

// Sampler 记录每台服务器上一次的网卡计数，用于计算速率
type Sampler struct {
	now func() time.Time

	mu   sync.Mutex
	prev map[string]point
}

// NewSampler now 为 nil 时使用 time.Now
func NewSampler(now func() time.Time) *Sampler {
	if now == nil {
		now = time.Now
	}
	return &Sampler{now: now, prev: make(map[string]point)}
}

// Sample 解析一次采集输出；首次采样的网络速率为 0
func (s *Sampler) Sample(serverID, output string) (*models.MonitorSample, error) {
	sample, counters, err := Parse(output)
	if err != nil {
		return nil, err
	}
	cur := point{at: s.now(), Counters: counters}

	s.mu.Lock()
	prev, ok := s.prev[serverID]
	s.prev[serverID] = cur
	s.mu.Unlock()

	if ok {
		sample.Network.Download = rate(prev.RX, cur.RX, cur.at.Sub(prev.at))
		sample.Network.Upload = rate(prev.TX, cur.TX, cur.at.Sub(prev.at))
	}
	return sample, nil
}

// Forget 断开连接后丢弃该服务器的历史
func (s *Sampler) Forget(serverID string) {
	s.mu.Lock()
	delete(s.prev, serverID)
	s.mu.Unlock()
}

// rate 计数回绕或重启后返回 0
func rate(prev, cur uint64, d time.Duration) uint64 {
	if d <= 0 || cur < prev {
		return 0
	}
	return uint64(float64(cur-prev) / d.Seconds())
}
