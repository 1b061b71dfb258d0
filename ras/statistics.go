package ras

import "time"

// ConnectionStatistics holds the counters accumulated by a connection since
// it was established or since its statistics were last cleared.
type ConnectionStatistics struct {
	BytesTransmitted      uint64        `json:"bytes_transmitted"`
	BytesReceived         uint64        `json:"bytes_received"`
	FramesTransmitted     uint64        `json:"frames_transmitted"`
	FramesReceived        uint64        `json:"frames_received"`
	CrcErrors             uint64        `json:"crc_errors"`
	TimeoutErrors         uint64        `json:"timeout_errors"`
	AlignmentErrors       uint64        `json:"alignment_errors"`
	HardwareOverrunErrors uint64        `json:"hardware_overrun_errors"`
	FramingErrors         uint64        `json:"framing_errors"`
	BufferOverrunErrors   uint64        `json:"buffer_overrun_errors"`
	CompressionRatioIn    uint64        `json:"compression_ratio_in"`
	CompressionRatioOut   uint64        `json:"compression_ratio_out"`
	LinkSpeed             uint64        `json:"link_speed_bps"`
	ConnectionDuration    time.Duration `json:"connection_duration"`
}

// TotalErrors sums every error counter.
func (s *ConnectionStatistics) TotalErrors() uint64 {
	return s.CrcErrors + s.TimeoutErrors + s.AlignmentErrors +
		s.HardwareOverrunErrors + s.FramingErrors + s.BufferOverrunErrors
}
