package fleet

import "time"

// Summary is the read-side aggregation consumed by dashboards.
type Summary struct {
	Total               int                      `json:"total"`
	ByType              map[DeviceType]int       `json:"byType"`
	ByStatus            map[Status]int           `json:"byStatus"`
	ByConnectionStatus  map[ConnectionStatus]int `json:"byConnectionStatus"`
	Active              int                      `json:"active"`
	Inactive            int                      `json:"inactive"`
	LiveActivationCodes int                      `json:"liveActivationCodes"`
}

// Summarize aggregates devices as observed at now. It is a pure function of
// its inputs: the counts are exactly the cardinalities of the observed
// device list under the same predicates.
func Summarize(devices []Device, liveCodes int, now time.Time, window time.Duration) Summary {
	s := Summary{
		ByType:              make(map[DeviceType]int, len(DeviceTypes)),
		ByStatus:            make(map[Status]int, len(Statuses)),
		ByConnectionStatus:  make(map[ConnectionStatus]int, len(ConnectionStatuses)),
		LiveActivationCodes: liveCodes,
	}
	for _, t := range DeviceTypes {
		s.ByType[t] = 0
	}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	for _, c := range ConnectionStatuses {
		s.ByConnectionStatus[c] = 0
	}

	for _, d := range devices {
		d = d.Observed(now, window)
		s.Total++
		s.ByType[d.Type()]++
		s.ByStatus[d.Status]++
		s.ByConnectionStatus[d.ConnectionStatus]++
		if d.Active {
			s.Active++
		} else {
			s.Inactive++
		}
	}
	return s
}
