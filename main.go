package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

// settingFlag is a pflag.Value that appends each parsed occurrence to the
// shared settings slice, so settings are applied in the order they appear
// on the command line (repeats included).
type settingFlag struct {
	typ      string
	parse    func(string) (Setting, error)
	settings *[]Setting
}

func (f *settingFlag) String() string { return "" }
func (f *settingFlag) Type() string   { return f.typ }

func (f *settingFlag) Set(s string) error {
	setting, err := f.parse(s)
	if err != nil {
		return err
	}
	*f.settings = append(*f.settings, setting)
	return nil
}

func newRootCmd() *cobra.Command {
	var (
		settings []Setting
		verbose  bool
		channel  int
	)

	cmd := &cobra.Command{
		Use:   "based-connect [flags] <address>",
		Short: "Configure Bose headphones over Bluetooth",
		Long: "based-connect changes settings of Bose headphones over an RFCOMM\n" +
			"connection: device name, noise cancelling level, auto-off timer and\n" +
			"voice-prompt language. <address> is the headphones' Bluetooth address\n" +
			"or a device alias from the config file.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			return run(args[0], channel, settings)
		},
	}

	cmd.Flags().VarP(&settingFlag{
		typ:      "name",
		settings: &settings,
		parse: func(s string) (Setting, error) {
			name, truncated := NewName(s)
			if truncated {
				log.Warnf("name exceeds %d byte maximum, truncating", MaxNameLen)
			}
			return name, nil
		},
	}, "name", "n", "set the device name")

	cmd.Flags().VarP(&settingFlag{
		typ:      "high|low|off",
		settings: &settings,
		parse: func(s string) (Setting, error) {
			return ParseNoiseCancelling(s)
		},
	}, "noise-cancelling", "c", "set the noise cancelling level")

	cmd.Flags().VarP(&settingFlag{
		typ:      "never|5|20|40|60|180",
		settings: &settings,
		parse: func(s string) (Setting, error) {
			return ParseAutoOff(s)
		},
	}, "auto-off", "o", "set the auto-off time in minutes")

	cmd.Flags().VarP(&settingFlag{
		typ:      "off|en|fr|it|de|es|pt|zh|ko|nl|ja|sv",
		settings: &settings,
		parse: func(s string) (Setting, error) {
			return ParsePromptLanguage(s)
		},
	}, "prompt-language", "l", "set the voice-prompt language")

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().IntVar(&channel, "channel", 0, "RFCOMM channel (default from config)")

	return cmd
}

func run(device string, channel int, settings []Setting) error {
	cfg, err := loadConfig(configPath())
	if err != nil {
		return err
	}
	if channel != 0 {
		if channel < 1 || channel > 30 {
			return fmt.Errorf("channel %d out of range 1-30", channel)
		}
		cfg.Channel = uint8(channel)
	}

	addr, err := resolveDevice(cfg, device)
	if err != nil {
		return err
	}
	devLog := log.WithField("device", addr)

	// Best-effort BlueZ preflight: bring the baseband link up so the RFCOMM
	// dial below does not have to. Only a powered-off adapter is fatal.
	if bz, err := newBluez(); err != nil {
		devLog.Debugf("skipping BlueZ preflight: %v", err)
	} else {
		alias, err := bz.preflight(addr)
		bz.close()
		if errors.Is(err, errAdapterOff) {
			return err
		}
		if err != nil {
			devLog.Warnf("BlueZ preflight: %v", err)
		}
		if alias != "" {
			devLog = devLog.WithField("alias", alias)
		}
	}

	devLog.WithField("channel", cfg.Channel).Debug("dialing RFCOMM")
	conn, err := dialRFCOMM(addr, cfg.Channel, cfg.SendTimeout, cfg.ReceiveTimeout)
	if err != nil {
		return err
	}

	session := NewSession(conn, devLog)
	defer session.Close()

	if err := session.Init(); err != nil {
		return err
	}

	for _, res := range session.ApplyAll(settings) {
		if res.Err != nil {
			return fmt.Errorf("%s: %w", res.Setting, res.Err)
		}
		devLog.Infof("applied %s", res.Setting)
	}
	return nil
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
