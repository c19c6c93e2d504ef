package registers

// servoDefinitions is the register map of the FPGA servo / frequency counter.
// Channel-specific blocks repeat every 0x100.
var servoDefinitions = []Definition{
	{Name: "PI_enables", Subsystem: "pll/loop_filter", Address: 0x0010, DisplayName: "PI enables", Visible: true, Format: Hex(2)},
	{Name: "PI_fine_gains", Subsystem: "pll/loop_filter", Address: 0x0011, DisplayName: "fine gain", Visible: true},
	{Name: "PI_coarse_P_gains", Subsystem: "pll/loop_filter", Address: 0x0012, DisplayName: "coarse P gain", Visible: true},
	{Name: "PI_coarse_I_gains", Subsystem: "pll/loop_filter", Address: 0x0013, DisplayName: "coarse I gain", Visible: true},
	{Name: "PI_lock", Subsystem: "pll/loop_filter", Address: 0x0014, DisplayName: "lock", Visible: true, Format: Bool},

	{Name: "dds_offset_freq", Subsystem: "pll/dds", Address: 0x0020, DisplayName: "offset frequency", Visible: true, Format: Hex(12)},
	{Name: "dds_limit_low", Subsystem: "pll/dds", Address: 0x0021, DisplayName: "lower limit", Visible: true, Format: Hex(12)},
	{Name: "dds_limit_high", Subsystem: "pll/dds", Address: 0x0022, DisplayName: "upper limit", Visible: true, Format: Hex(12)},

	{Name: "adc_clk_ext", Subsystem: "adc/clock", Address: 0x0030, DisplayName: "external clock", Visible: true, Format: Bool},
	{Name: "adc_clk_pll_N", Subsystem: "adc/clock", Address: 0x0031, DisplayName: "PLL N divider", Visible: true},
	{Name: "adc_clk_pll_R", Subsystem: "adc/clock", Address: 0x0032, DisplayName: "PLL R divider", Visible: true},
	{Name: "adc_ext_clk_freq", Subsystem: "adc/clock", Address: 0x0033, DisplayName: "measured ref", Visible: true, Format: Scaled(1e-6, "MHz")},

	{Name: "phase_output_rate", Subsystem: "phase_readout", Address: 0x0040, DisplayName: "output rate", Visible: true},
	{Name: "phase_reset", Subsystem: "phase_readout", Address: 0x0041, DisplayName: "reset", Visible: false, Format: Hex(1)},

	{Name: "ch1_ddc_ref_freq", Subsystem: "channels/ch1/ddc", Address: 0x0100, DisplayName: "ref frequency", Visible: true, Format: Fixed(48)},
	{Name: "ch1_lo_int", Subsystem: "channels/ch1/lo", Address: 0x0110, DisplayName: "INT", Visible: true},
	{Name: "ch1_lo_r", Subsystem: "channels/ch1/lo", Address: 0x0111, DisplayName: "R", Visible: true},
	{Name: "ch1_lo_rf_div", Subsystem: "channels/ch1/lo", Address: 0x0112, DisplayName: "RF divider select", Visible: true},
	{Name: "ch1_lo_enable", Subsystem: "channels/ch1/lo", Address: 0x0113, DisplayName: "output enable", Visible: true, Format: Bool},

	{Name: "ch2_ddc_ref_freq", Subsystem: "channels/ch2/ddc", Address: 0x0200, DisplayName: "ref frequency", Visible: true, Format: Fixed(48)},
	{Name: "ch2_lo_int", Subsystem: "channels/ch2/lo", Address: 0x0210, DisplayName: "INT", Visible: true},
	{Name: "ch2_lo_r", Subsystem: "channels/ch2/lo", Address: 0x0211, DisplayName: "R", Visible: true},
	{Name: "ch2_lo_rf_div", Subsystem: "channels/ch2/lo", Address: 0x0212, DisplayName: "RF divider select", Visible: true},
	{Name: "ch2_lo_enable", Subsystem: "channels/ch2/lo", Address: 0x0213, DisplayName: "output enable", Visible: true, Format: Bool},
}

// Servo returns the catalog of the FPGA servo.  The definitions are static and
// known to be consistent, so it panics if construction fails.
func Servo() *Catalog {
	c, err := NewCatalog(servoDefinitions...)
	if err != nil {
		panic(err)
	}
	return c
}
