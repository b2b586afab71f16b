package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aminehadbi/worksteal/core"
	"github.com/aminehadbi/worksteal/internal/config"
)

var _ = Describe("Configuration", func() {
	var (
		v  *viper.Viper
		fs *pflag.FlagSet
	)

	BeforeEach(func() {
		var err error
		v, err = config.NewViper("")
		Expect(err).NotTo(HaveOccurred())

		fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
		Expect(config.BindFlags(fs, v)).To(Succeed())
	})

	Context("defaults", func() {
		// Given no flags, environment or file
		// When the configuration is loaded
		// Then every field has its tagged default
		It("should apply struct defaults", func() {
			c, err := config.Load(v)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.Name).To(Equal("worksteal"))
			Expect(c.Tasks).To(Equal(100000))
			Expect(c.Workers).To(Equal(0))
			Expect(c.Producers).To(Equal(1))
			Expect(c.Spin).To(Equal(core.DefaultSpinMultiplier))
			Expect(c.ShutdownTimeout).To(Equal(30 * time.Second))
			Expect(c.LogLevel).To(Equal("info"))
			Expect(c.NoPin).To(BeFalse())
		})
	})

	Context("flags", func() {
		// Given explicit command line flags
		// When the configuration is loaded
		// Then the flag values win over the defaults
		It("should override defaults", func() {
			Expect(fs.Parse([]string{"--tasks=10", "--workers=3", "--no-pin", "--fail-every=5", "--shutdown-timeout=2s"})).To(Succeed())

			c, err := config.Load(v)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Tasks).To(Equal(10))
			Expect(c.Workers).To(Equal(3))
			Expect(c.NoPin).To(BeTrue())
			Expect(c.FailEvery).To(Equal(5))
			Expect(c.ShutdownTimeout).To(Equal(2 * time.Second))
		})
	})

	Context("environment", func() {
		BeforeEach(func() {
			GinkgoT().Setenv("WORKSTEAL_PRODUCERS", "4")
			GinkgoT().Setenv("WORKSTEAL_LOG_LEVEL", "debug")
		})

		It("should read WORKSTEAL_ variables", func() {
			c, err := config.Load(v)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Producers).To(Equal(4))
			Expect(c.LogLevel).To(Equal("debug"))
		})
	})

	Context("config file", func() {
		It("should read values from a YAML file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "worksteal.yaml")
			Expect(os.WriteFile(path, []byte("tasks: 42\nspin: 4\nname: from-file\n"), 0o600)).To(Succeed())

			fv, err := config.NewViper(path)
			Expect(err).NotTo(HaveOccurred())
			c, err := config.Load(fv)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Tasks).To(Equal(42))
			Expect(c.Spin).To(Equal(4))
			Expect(c.Name).To(Equal("from-file"))
		})

		It("should fail on a missing file", func() {
			_, err := config.NewViper(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
			Expect(err).To(HaveOccurred())
		})
	})

	Context("validation", func() {
		It("should reject out of range values", func() {
			Expect(fs.Parse([]string{"--producers=0", "--spin=0", "--log-format=xml"})).To(Succeed())

			_, err := config.Load(v)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("producers"))
			Expect(err.Error()).To(ContainSubstring("spin"))
			Expect(err.Error()).To(ContainSubstring("log-format"))
		})
	})

	Context("SchedulerConfig", func() {
		It("should map settings onto core.Config", func() {
			c := config.New()
			c.Workers = 2
			c.NoPin = true
			c.Drain = true

			sc := c.SchedulerConfig(core.NewNoOpLogger(), &core.NilMetrics{})
			Expect(sc.Workers).To(Equal(2))
			Expect(sc.DrainOnShutdown).To(BeTrue())
			Expect(sc.Pinner).NotTo(BeNil())
			Expect(sc.Pinner.Pin(0)).To(Succeed())
			Expect(sc.PanicHandler).To(BeAssignableToTypeOf(&core.LoggingPanicHandler{}))
		})

		It("should build a logger", func() {
			c := config.New()
			c.LogFormat = "json"
			logger, err := c.Logger()
			Expect(err).NotTo(HaveOccurred())
			Expect(logger).NotTo(BeNil())
		})
	})
})
