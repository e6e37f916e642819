package service_test

import (
	"bytes"
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/config"
	"github.com/wireline-net/wireline/internal/service"
	"github.com/wireline-net/wireline/internal/store"
	"github.com/wireline-net/wireline/internal/store/model"
)

func buildInventoryWorkbook(rows [][]string) []byte {
	f := excelize.NewFile()
	defer f.Close()

	Expect(f.SetSheetName("Sheet1", "devices")).To(Succeed())

	headers := []string{"Hostname", "Address", "Vendor", "Platform", "Site", "Role", "Enabled"}
	for colIndex, header := range headers {
		cellRef, err := excelize.CoordinatesToCellName(colIndex+1, 1)
		Expect(err).To(Succeed())
		Expect(f.SetCellValue("devices", cellRef, header)).To(Succeed())
	}

	for rowIndex, row := range rows {
		for colIndex, value := range row {
			cellRef, err := excelize.CoordinatesToCellName(colIndex+1, rowIndex+2)
			Expect(err).To(Succeed())
			Expect(f.SetCellValue("devices", cellRef, value)).To(Succeed())
		}
	}

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	Expect(err).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("device service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		srv    *service.DeviceService
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration(context.TODO())).To(BeNil())

		srv = service.NewDeviceService(s)
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE from config_snapshots;")
		gormdb.Exec("DELETE from devices;")
	})

	insertDevice := func(device model.Device) *model.Device {
		created, err := s.Device().Create(context.TODO(), device)
		Expect(err).To(BeNil())
		return created
	}

	Context("list", func() {
		It("lists only the caller's devices sorted by hostname", func() {
			insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-02", OrgID: "acme", Address: "10.0.0.2", Enabled: true})
			insertDevice(model.Device{ID: uuid.New(), Hostname: "core-01", OrgID: "acme", Address: "10.0.0.3", Enabled: true})
			insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-01", OrgID: "acme", Address: "10.0.0.1", Enabled: true})
			insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-09", OrgID: "globex", Address: "10.9.0.1", Enabled: true})

			devices, err := srv.ListDevices(context.TODO(), adminUser, service.NewDeviceFilter())
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(3))
			Expect(devices[0].Hostname).To(Equal("core-01"))
			Expect(devices[1].Hostname).To(Equal("edge-01"))
			Expect(devices[2].Hostname).To(Equal("edge-02"))
		})

		It("applies inventory filters", func() {
			insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-01", OrgID: "acme", Address: "10.0.0.1",
				Vendor: "cisco", Platform: "ios-xe", Site: "fra1", Role: "edge", Enabled: true})
			insertDevice(model.Device{ID: uuid.New(), Hostname: "core-01", OrgID: "acme", Address: "10.0.0.2",
				Vendor: "juniper", Platform: "junos", Site: "ams2", Role: "core", Enabled: false})

			devices, err := srv.ListDevices(context.TODO(), adminUser,
				service.NewDeviceFilter(service.WithDeviceSite("fra1")))
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].Hostname).To(Equal("edge-01"))

			devices, err = srv.ListDevices(context.TODO(), adminUser,
				service.NewDeviceFilter(service.WithDeviceRole("core")))
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].Hostname).To(Equal("core-01"))

			devices, err = srv.ListDevices(context.TODO(), adminUser,
				service.NewDeviceFilter(service.WithDeviceVendor("cisco"), service.WithDevicePlatform("ios-xe")))
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(1))

			devices, err = srv.ListDevices(context.TODO(), adminUser,
				service.NewDeviceFilter(service.WithEnabledOnly()))
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].Hostname).To(Equal("edge-01"))
		})
	})

	Context("get", func() {
		It("returns an owned device", func() {
			created := insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-01", OrgID: "acme", Address: "10.0.0.1", Enabled: true})

			device, err := srv.GetDevice(context.TODO(), adminUser, created.ID)
			Expect(err).To(BeNil())
			Expect(device.Hostname).To(Equal("edge-01"))
			Expect(device.Address).To(Equal("10.0.0.1"))
		})

		It("hides devices of other tenants behind not found", func() {
			created := insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-09", OrgID: "globex", Address: "10.9.0.1", Enabled: true})

			_, err := srv.GetDevice(context.TODO(), adminUser, created.ID)
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())

			_, err = srv.GetDevice(context.TODO(), adminUser, uuid.New())
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})

	Context("create", func() {
		It("creates a device enabled by default", func() {
			device, err := srv.CreateDevice(context.TODO(), adminUser, api.DeviceForm{
				Hostname: "edge-01",
				Address:  "10.0.0.1",
				Vendor:   "cisco",
				Platform: "ios-xe",
				Site:     "fra1",
				Role:     "edge",
			})
			Expect(err).To(BeNil())
			Expect(device.Enabled).To(BeTrue())
			Expect(device.Hostname).To(Equal("edge-01"))

			stored, err := s.Device().Get(context.TODO(), device.ID)
			Expect(err).To(BeNil())
			Expect(stored.OrgID).To(Equal("acme"))
		})

		It("rejects a duplicate hostname within the tenant", func() {
			form := api.DeviceForm{Hostname: "edge-01", Address: "10.0.0.1"}

			_, err := srv.CreateDevice(context.TODO(), adminUser, form)
			Expect(err).To(BeNil())

			_, err = srv.CreateDevice(context.TODO(), adminUser, form)
			var dupErr *service.ErrDuplicateHostname
			Expect(errors.As(err, &dupErr)).To(BeTrue(), "expected ErrDuplicateHostname error type")
		})
	})

	Context("update", func() {
		It("replaces the record and keeps enabled when the form omits it", func() {
			disabled := false
			created, err := srv.CreateDevice(context.TODO(), adminUser, api.DeviceForm{
				Hostname: "edge-01", Address: "10.0.0.1", Site: "fra1", Enabled: &disabled,
			})
			Expect(err).To(BeNil())
			Expect(created.Enabled).To(BeFalse())

			updated, err := srv.UpdateDevice(context.TODO(), adminUser, created.ID, api.DeviceForm{
				Hostname: "edge-01", Address: "10.20.0.11", Site: "ams2",
			})
			Expect(err).To(BeNil())
			Expect(updated.Address).To(Equal("10.20.0.11"))
			Expect(updated.Site).To(Equal("ams2"))
			Expect(updated.Enabled).To(BeFalse())

			enabled := true
			updated, err = srv.UpdateDevice(context.TODO(), adminUser, created.ID, api.DeviceForm{
				Hostname: "edge-01", Address: "10.20.0.11", Enabled: &enabled,
			})
			Expect(err).To(BeNil())
			Expect(updated.Enabled).To(BeTrue())
		})

		It("hides devices of other tenants behind not found", func() {
			created := insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-09", OrgID: "globex", Address: "10.9.0.1", Enabled: true})

			_, err := srv.UpdateDevice(context.TODO(), adminUser, created.ID, api.DeviceForm{
				Hostname: "edge-09", Address: "10.9.0.2",
			})
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})

	Context("delete", func() {
		It("deletes an owned device", func() {
			created := insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-01", OrgID: "acme", Address: "10.0.0.1", Enabled: true})

			Expect(srv.DeleteDevice(context.TODO(), adminUser, created.ID)).To(BeNil())

			_, err := s.Device().Get(context.TODO(), created.ID)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("refuses to delete another tenant's device", func() {
			created := insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-09", OrgID: "globex", Address: "10.9.0.1", Enabled: true})

			err := srv.DeleteDevice(context.TODO(), adminUser, created.ID)
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())

			_, err = s.Device().Get(context.TODO(), created.ID)
			Expect(err).To(BeNil())
		})
	})

	Context("import", func() {
		It("merges workbook rows into the inventory keyed by hostname", func() {
			existing := insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-01", OrgID: "acme", Address: "10.0.0.1", Enabled: true})

			content := buildInventoryWorkbook([][]string{
				{"edge-01", "10.20.0.11", "cisco", "ios-xe", "fra1", "edge", "yes"},
				{"edge-02", "10.20.0.12", "cisco", "ios-xe", "fra1", "edge", "yes"},
				{"bad hostname", "10.20.0.13"},
				{"edge-02", "10.20.0.14"},
			})

			report, err := srv.ImportDevices(context.TODO(), adminUser, bytes.NewReader(content))
			Expect(err).To(BeNil())
			Expect(report.Updated).To(Equal(1))
			Expect(report.Created).To(Equal(1))
			Expect(report.Skipped).To(Equal(2))
			Expect(report.Errors).To(HaveLen(2))
			Expect(report.Errors[0]).To(ContainSubstring("invalid hostname"))
			Expect(report.Errors[1]).To(ContainSubstring("duplicate hostname"))

			updated, err := s.Device().Get(context.TODO(), existing.ID)
			Expect(err).To(BeNil())
			Expect(updated.Address).To(Equal("10.20.0.11"))
			Expect(updated.Site).To(Equal("fra1"))

			devices, err := srv.ListDevices(context.TODO(), adminUser, service.NewDeviceFilter())
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(2))
		})

		It("rejects content that is not a workbook", func() {
			_, err := srv.ImportDevices(context.TODO(), adminUser, bytes.NewReader([]byte("hostname,address\nedge-01,10.0.0.1\n")))
			var formErr *service.ErrInvalidForm
			Expect(errors.As(err, &formErr)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("not an xlsx workbook"))
		})

		It("rejects an empty upload", func() {
			_, err := srv.ImportDevices(context.TODO(), adminUser, bytes.NewReader(nil))
			var formErr *service.ErrInvalidForm
			Expect(errors.As(err, &formErr)).To(BeTrue())
		})
	})

	Context("config", func() {
		It("returns the latest captured configuration", func() {
			created := insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-01", OrgID: "acme", Address: "10.0.0.1", Enabled: true})

			jobID := uuid.New()
			_, err := s.Snapshot().Create(context.TODO(), model.ConfigSnapshot{
				DeviceID: created.ID,
				JobID:    jobID,
				OrgID:    "acme",
				Config:   "hostname edge-01\nntp server 10.0.0.99\n",
				Checksum: "abc123",
			})
			Expect(err).To(BeNil())

			snapshot, err := srv.GetDeviceConfig(context.TODO(), adminUser, created.ID)
			Expect(err).To(BeNil())
			Expect(snapshot.DeviceID).To(Equal(created.ID))
			Expect(snapshot.JobID).To(Equal(jobID))
			Expect(snapshot.Config).To(ContainSubstring("hostname edge-01"))
		})

		It("reports not found when no backup covered the device", func() {
			created := insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-01", OrgID: "acme", Address: "10.0.0.1", Enabled: true})

			_, err := srv.GetDeviceConfig(context.TODO(), adminUser, created.ID)
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("hides another tenant's device behind not found", func() {
			created := insertDevice(model.Device{ID: uuid.New(), Hostname: "edge-09", OrgID: "globex", Address: "10.9.0.1", Enabled: true})

			_, err := srv.GetDeviceConfig(context.TODO(), adminUser, created.ID)
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})
})
