// conf/defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// setDefaultConfig sets default values for every recognised configuration key.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("output.clobber", false)
	viper.SetDefault("output.split", false)
	viper.SetDefault("output.notifyurl", "")

	viper.SetDefault("jsonrpc.url", "http://0.0.0.0:8080")

	viper.SetDefault("daemon.daemon", false)
	viper.SetDefault("daemon.pidfile", "/var/run/piccolo.pid")

	viper.SetDefault("datadir.datadir", "./spectra")
	viper.SetDefault("datadir.device", "")
	viper.SetDefault("datadir.mntpnt", "")
	viper.SetDefault("datadir.mount", false)

	viper.SetDefault("scheduler.tickinterval", "100ms")
	viper.SetDefault("scheduler.quietstart", "")
	viper.SetDefault("scheduler.quietend", "")

	viper.SetDefault("log.path", "")
	viper.SetDefault("log.maxsizemb", 100)
	viper.SetDefault("log.maxbackups", 5)
	viper.SetDefault("log.maxagedays", 30)
}
