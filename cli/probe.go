package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/camclassify/camclassify/components/camera/videosource"
	"github.com/camclassify/camclassify/ml/inference"
)

// ioSpecTable renders a model's tensors as a table.
func ioSpecTable(path string, spec inference.ModelIOSpec) string {
	t := table.NewWriter()
	t.SetTitle(path)
	t.AppendHeader(table.Row{"Tensor", "Type", "Shape", "Detail"})
	t.AppendRow(table.Row{
		"input", spec.InputType, fmt.Sprint(spec.InputShape),
		fmt.Sprintf("%dx%d, %d channels, floating=%t", spec.InputWidth, spec.InputHeight, spec.InputChannels, spec.InputIsFloating()),
	})
	t.AppendRow(table.Row{
		"output", spec.OutputType, fmt.Sprint(spec.OutputShape),
		fmt.Sprintf("%d classes, floating=%t", spec.OutputSize, spec.OutputIsFloating()),
	})
	return t.Render()
}

// ProbeAction is the corresponding action for 'probe'.
func ProbeAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	delegate, err := cfg.DelegateSpec()
	if err != nil {
		return err
	}
	logger := newLogger("probe", c.App.ErrWriter, cfg.Debug)
	session, err := loadSession(c.Context, cfg.ModelFile, delegate, cfg.NumThreads, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, session.Close(c.Context))
	}()
	if err := session.Warmup(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, ioSpecTable(cfg.ModelFile, session.IOSpec())) //nolint:errcheck
	return nil
}

func devicesTable(devices []videosource.DeviceInfo) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Label", "Status", "ID"})
	for _, d := range devices {
		t.AppendRow(table.Row{d.Index, d.Label, d.Status, d.ID})
	}
	return t.Render()
}

// DevicesAction is the corresponding action for 'devices'.
func DevicesAction(c *cli.Context) error {
	devices := videosource.ListDevices()
	if len(devices) == 0 {
		fmt.Fprintln(c.App.Writer, "no video capture devices found") //nolint:errcheck
		return nil
	}
	fmt.Fprintln(c.App.Writer, devicesTable(devices)) //nolint:errcheck
	return nil
}
