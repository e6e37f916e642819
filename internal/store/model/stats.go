package model

// FleetStats is a point-in-time aggregate over the device inventory and the
// job table, computed for the metrics collector.
type FleetStats struct {
	Devices DeviceStats
	Jobs    JobStats
	// TotalOrgs counts organizations with at least one device.
	TotalOrgs int
}

type DeviceStats struct {
	Total         int
	Enabled       int
	TotalByVendor map[string]int
	TotalBySite   map[string]int
}

type JobStats struct {
	TotalByState map[string]int
}

func NewFleetStats(devices DeviceList, jobs JobList) FleetStats {
	stats := FleetStats{
		Devices: DeviceStats{
			TotalByVendor: make(map[string]int),
			TotalBySite:   make(map[string]int),
		},
		Jobs: JobStats{
			TotalByState: make(map[string]int),
		},
	}

	orgs := make(map[string]struct{})
	for _, d := range devices {
		stats.Devices.Total++
		if d.Enabled {
			stats.Devices.Enabled++
		}
		if d.Vendor != "" {
			stats.Devices.TotalByVendor[d.Vendor]++
		}
		if d.Site != "" {
			stats.Devices.TotalBySite[d.Site]++
		}
		orgs[d.OrgID] = struct{}{}
	}
	stats.TotalOrgs = len(orgs)

	for _, j := range jobs {
		stats.Jobs.TotalByState[j.State]++
	}

	return stats
}
