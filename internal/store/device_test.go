package store_test

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/wireline-net/wireline/internal/config"
	st "github.com/wireline-net/wireline/internal/store"
	"github.com/wireline-net/wireline/internal/store/model"
)

const (
	insertDeviceStm     = "INSERT INTO devices (id, hostname, org_id, address, vendor, platform, site, role, enabled) VALUES ('%s', '%s', '%s', '10.0.0.1', '%s', 'ios-xe', '%s', '%s', %s);"
	insertBareDeviceStm = "INSERT INTO devices (id, hostname, org_id, address, enabled) VALUES ('%s', '%s', '%s', '10.0.0.1', TRUE);"
)

var _ = Describe("device store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store.InitialMigration(context.TODO())).To(BeNil())
	})

	AfterAll(func() {
		store.Close()
	})

	Context("list", func() {
		It("lists all devices of an organization", func() {
			tx := gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, uuid.NewString(), "edge-01", "acme"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, uuid.NewString(), "edge-02", "acme"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, uuid.NewString(), "core-01", "globex"))
			Expect(tx.Error).To(BeNil())

			devices, err := store.Device().List(context.TODO(),
				st.NewDeviceQueryFilter().ByOrgID("acme"),
				st.NewDeviceQueryOptions())
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(2))
		})

		It("filters by site, role, vendor and platform", func() {
			tx := gormDB.Exec(fmt.Sprintf(insertDeviceStm, uuid.NewString(), "edge-01", "acme", "cisco", "fra1", "edge", "TRUE"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertDeviceStm, uuid.NewString(), "core-01", "acme", "juniper", "ams2", "core", "TRUE"))
			Expect(tx.Error).To(BeNil())

			devices, err := store.Device().List(context.TODO(),
				st.NewDeviceQueryFilter().ByOrgID("acme").BySite("fra1"),
				st.NewDeviceQueryOptions())
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].Hostname).To(Equal("edge-01"))

			devices, err = store.Device().List(context.TODO(),
				st.NewDeviceQueryFilter().ByOrgID("acme").ByRole("core"),
				st.NewDeviceQueryOptions())
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].Hostname).To(Equal("core-01"))

			devices, err = store.Device().List(context.TODO(),
				st.NewDeviceQueryFilter().ByOrgID("acme").ByVendor("juniper"),
				st.NewDeviceQueryOptions())
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(1))

			devices, err = store.Device().List(context.TODO(),
				st.NewDeviceQueryFilter().ByOrgID("acme").ByPlatform("ios-xe"),
				st.NewDeviceQueryOptions())
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(2))
		})

		It("filters disabled devices out when asked", func() {
			tx := gormDB.Exec(fmt.Sprintf(insertDeviceStm, uuid.NewString(), "edge-01", "acme", "cisco", "fra1", "edge", "TRUE"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertDeviceStm, uuid.NewString(), "edge-02", "acme", "cisco", "fra1", "edge", "FALSE"))
			Expect(tx.Error).To(BeNil())

			devices, err := store.Device().List(context.TODO(),
				st.NewDeviceQueryFilter().ByOrgID("acme").ByEnabled(true),
				st.NewDeviceQueryOptions())
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].Hostname).To(Equal("edge-01"))
		})

		It("selects explicit ids", func() {
			first := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, first, "edge-01", "acme"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, uuid.NewString(), "edge-02", "acme"))
			Expect(tx.Error).To(BeNil())

			devices, err := store.Device().List(context.TODO(),
				st.NewDeviceQueryFilter().ByOrgID("acme").ByIDs([]uuid.UUID{first}),
				st.NewDeviceQueryOptions())
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].ID).To(Equal(first))
		})

		It("sorts by hostname", func() {
			tx := gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, uuid.NewString(), "edge-02", "acme"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, uuid.NewString(), "core-01", "acme"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, uuid.NewString(), "edge-01", "acme"))
			Expect(tx.Error).To(BeNil())

			devices, err := store.Device().List(context.TODO(),
				st.NewDeviceQueryFilter().ByOrgID("acme"),
				st.NewDeviceQueryOptions().WithSortOrder(st.SortByHostname))
			Expect(err).To(BeNil())
			Expect(devices).To(HaveLen(3))
			Expect(devices[0].Hostname).To(Equal("core-01"))
			Expect(devices[1].Hostname).To(Equal("edge-01"))
			Expect(devices[2].Hostname).To(Equal("edge-02"))
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from devices;")
		})
	})

	Context("get", func() {
		It("retrieves a device by id", func() {
			id := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, id, "edge-01", "acme"))
			Expect(tx.Error).To(BeNil())

			device, err := store.Device().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(device.Hostname).To(Equal("edge-01"))
			Expect(device.OrgID).To(Equal("acme"))
		})

		It("reports a missing device", func() {
			_, err := store.Device().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from devices;")
		})
	})

	Context("create", func() {
		It("creates a device", func() {
			device, err := store.Device().Create(context.TODO(), model.Device{
				ID:       uuid.New(),
				Hostname: "edge-01",
				OrgID:    "acme",
				Address:  "edge-01.net.example.com",
				Vendor:   "cisco",
				Platform: "ios-xe",
				Site:     "fra1",
				Role:     "edge",
				Enabled:  true,
			})
			Expect(err).To(BeNil())
			Expect(device.ID).ToNot(Equal(uuid.Nil))

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) from devices;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("refuses a duplicate hostname within the organization", func() {
			tx := gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, uuid.NewString(), "edge-01", "acme"))
			Expect(tx.Error).To(BeNil())

			_, err := store.Device().Create(context.TODO(), model.Device{
				ID:       uuid.New(),
				Hostname: "edge-01",
				OrgID:    "acme",
				Address:  "10.0.0.2",
				Enabled:  true,
			})
			Expect(err).To(MatchError(st.ErrDuplicateKey))
		})

		It("allows the same hostname in another organization", func() {
			tx := gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, uuid.NewString(), "edge-01", "acme"))
			Expect(tx.Error).To(BeNil())

			_, err := store.Device().Create(context.TODO(), model.Device{
				ID:       uuid.New(),
				Hostname: "edge-01",
				OrgID:    "globex",
				Address:  "10.0.0.2",
				Enabled:  true,
			})
			Expect(err).To(BeNil())
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from devices;")
		})
	})

	Context("update", func() {
		It("replaces every field, including zero values", func() {
			id := uuid.New()
			_, err := store.Device().Create(context.TODO(), model.Device{
				ID:       id,
				Hostname: "edge-01",
				OrgID:    "acme",
				Address:  "10.0.0.1",
				Site:     "fra1",
				Enabled:  true,
			})
			Expect(err).To(BeNil())

			created, err := store.Device().Get(context.TODO(), id)
			Expect(err).To(BeNil())

			updated, err := store.Device().Update(context.TODO(), model.Device{
				ID:       id,
				Hostname: "edge-01",
				OrgID:    "acme",
				Address:  "10.0.0.9",
				Enabled:  false,
			})
			Expect(err).To(BeNil())
			Expect(updated.Address).To(Equal("10.0.0.9"))
			Expect(updated.Enabled).To(BeFalse())
			// clearing a label must stick
			Expect(updated.Site).To(BeEmpty())
			Expect(updated.CreatedAt).To(BeTemporally("==", created.CreatedAt))

			got, err := store.Device().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(got.Enabled).To(BeFalse())
			Expect(got.Site).To(BeEmpty())
		})

		It("reports a missing device", func() {
			_, err := store.Device().Update(context.TODO(), model.Device{
				ID:       uuid.New(),
				Hostname: "ghost",
				OrgID:    "acme",
				Address:  "10.0.0.1",
			})
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from devices;")
		})
	})

	Context("delete", func() {
		It("removes a device", func() {
			id := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertBareDeviceStm, id, "edge-01", "acme"))
			Expect(tx.Error).To(BeNil())

			Expect(store.Device().Delete(context.TODO(), id)).To(BeNil())

			count := 0
			err := gormDB.Raw("SELECT COUNT(*) from devices;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("tolerates deleting an absent device", func() {
			Expect(store.Device().Delete(context.TODO(), uuid.New())).To(BeNil())
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from devices;")
		})
	})
})
