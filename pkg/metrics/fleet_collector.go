package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wireline-net/wireline/internal/store"
	"go.uber.org/zap"
)

// fleetStatsCollector reads inventory and job aggregates from the store at
// scrape time instead of tracking counters in process, so the numbers survive
// restarts and cover writes made by other instances.
type fleetStatsCollector struct {
	store            store.Store
	totalDevices     *prometheus.Desc
	enabledDevices   *prometheus.Desc
	totalOrgs        *prometheus.Desc
	devicesByVendor  *prometheus.Desc
	devicesBySite    *prometheus.Desc
	jobsByStateTotal *prometheus.Desc
}

func newFleetStatsCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_fleet_%s", wireline, name)
	}

	return &fleetStatsCollector{
		store: s,
		totalDevices: prometheus.NewDesc(
			fqName("devices_total"),
			"Total number of inventory devices.",
			nil,
			prometheus.Labels{},
		),
		enabledDevices: prometheus.NewDesc(
			fqName("devices_enabled_total"),
			"Number of devices eligible for filter-based dispatch.",
			nil,
			prometheus.Labels{},
		),
		totalOrgs: prometheus.NewDesc(
			fqName("organizations_total"),
			"Number of organizations with at least one device.",
			nil,
			prometheus.Labels{},
		),
		devicesByVendor: prometheus.NewDesc(
			fqName("devices_by_vendor_total"),
			"Devices by vendor.",
			[]string{"vendor"},
			prometheus.Labels{},
		),
		devicesBySite: prometheus.NewDesc(
			fqName("devices_by_site_total"),
			"Devices by site.",
			[]string{"site"},
			prometheus.Labels{},
		),
		jobsByStateTotal: prometheus.NewDesc(
			fqName("jobs_by_state_total"),
			"Jobs by lifecycle state.",
			[]string{"state"},
			prometheus.Labels{},
		),
	}
}

// RegisterFleetCollector wires the store-backed collector into the default
// registry. Call once at startup, after the store is ready.
func RegisterFleetCollector(s store.Store) {
	prometheus.MustRegister(newFleetStatsCollector(s))
}

func (c *fleetStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalDevices
	ch <- c.enabledDevices
	ch <- c.totalOrgs
	ch <- c.devicesByVendor
	ch <- c.devicesBySite
	ch <- c.jobsByStateTotal
}

// Collect implements Collector.
func (c *fleetStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.store.Statistics(context.Background())
	if err != nil {
		zap.S().Named("fleet_collector").Errorf("failed to collect fleet statistics: %s", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.totalDevices, prometheus.GaugeValue, float64(stats.Devices.Total))
	ch <- prometheus.MustNewConstMetric(c.enabledDevices, prometheus.GaugeValue, float64(stats.Devices.Enabled))
	ch <- prometheus.MustNewConstMetric(c.totalOrgs, prometheus.GaugeValue, float64(stats.TotalOrgs))

	for vendor, total := range stats.Devices.TotalByVendor {
		ch <- prometheus.MustNewConstMetric(c.devicesByVendor, prometheus.GaugeValue, float64(total), vendor)
	}
	for site, total := range stats.Devices.TotalBySite {
		ch <- prometheus.MustNewConstMetric(c.devicesBySite, prometheus.GaugeValue, float64(total), site)
	}
	for state, total := range stats.Jobs.TotalByState {
		ch <- prometheus.MustNewConstMetric(c.jobsByStateTotal, prometheus.GaugeValue, float64(total), state)
	}
}
