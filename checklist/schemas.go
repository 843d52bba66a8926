package checklist

import "github.com/mbolis/pmdraft/model"

var acSchema = model.Schema{
	FormType: AC,
	Title:    "AC Charger PM Report",
	Remarks:  model.RemarkOnFail,
	Items: []model.ChecklistItem{
		simple(1, "r1", "Enclosure general condition", true),
		simple(2, "r2", "Door lock and sealing", false),
		simple(3, "r3", "Charging cable and Type 2 connector", true),
		simple(4, "r4", "Cable holster and strain relief", false),
		simple(5, "r5", "Display and status LED", true),
		simple(6, "r6", "RFID reader", false),
		simple(7, "r7", "Emergency stop button", true),
		simple(8, "r8", "Input terminal torque", true),
		measure(9, "r9", "Incoming supply voltage", true, voltageFields...),
		measure(10, "r10", "RCD trip test", false, "trip_time_ms", "trip_current_ma"),
		measure(11, "r11", "Earth resistance", false, "earth_ohm"),
		simple(12, "r12", "Test charging session", true),
	},
}

var dcSchema = model.Schema{
	FormType: DC,
	Title:    "DC Charger PM Report",
	Remarks:  model.RemarkOnFail,
	Items: []model.ChecklistItem{
		simple(1, "r1", "Cabinet general condition", true),
		simple(2, "r2", "Air filter cleaning", true),
		simple(3, "r3", "Cooling fans", false),
		simple(4, "r4", "CCS2 connector and cable", true),
		simple(5, "r5", "CHAdeMO connector and cable", true),
		simple(6, "r6", "Liquid cooling level", false),
		simple(7, "r7", "Power module status", true),
		simple(8, "r8", "HMI touch screen", false),
		simple(9, "r9", "Emergency stop button", true),
		measure(10, "r10", "Incoming supply voltage", true, voltageFields...),
		measure(11, "r11", "Insulation resistance", false, "dc_pos_g", "dc_neg_g"),
		measure(12, "r12", "Output voltage at test load", false, "v_out", "i_out"),
		simple(13, "r13", "Firmware version check", false),
		remarked(simple(14, "r14", "Test charging session", true)),
	},
}

var ccbSchema = model.Schema{
	FormType: CCB,
	Title:    "CCB PM Report",
	Remarks:  model.RemarkOnFail,
	Items: []model.ChecklistItem{
		simple(1, "r1", "Panel enclosure and gland", true),
		simple(2, "r2", "Main breaker condition", true),
		simple(3, "r3", "Busbar tightness", true),
		simple(4, "r4", "Thermal scan", true),
		measure(5, "r5", "Busbar voltage", true, voltageFields...),
		measure(6, "r6", "Load current", false, "i_l1", "i_l2", "i_l3"),
		simple(7, "r7", "Surge protection device", false),
		simple(8, "r8", "Labels and single line diagram", false),
	},
}

// cbBoxSchema carries the one hierarchical item: r9 groups six sub
// measurements stored as m9_0..m9_5.
var cbBoxSchema = model.Schema{
	FormType: CBBox,
	Title:    "CB-BOX PM Report",
	Remarks:  model.RemarkOnFail,
	Items: []model.ChecklistItem{
		simple(1, "r1", "Box enclosure condition", true),
		simple(2, "r2", "Cable entry sealing", false),
		simple(3, "r3", "MCB condition", true),
		simple(4, "r4", "RCBO condition", true),
		simple(5, "r5", "Terminal tightness", true),
		simple(6, "r6", "Earth bar connection", false),
		simple(7, "r7", "Labelling", false),
		measure(8, "r8", "Supply voltage", true, voltageFields...),
		measure(9, "r9", "Outgoing circuit insulation", false, "m9_0", "m9_1", "m9_2", "m9_3", "m9_4", "m9_5"),
	},
}

var stationSchema = model.Schema{
	FormType: Station,
	Title:    "Station PM Report",
	Remarks:  model.RemarkAlways,
	Items: []model.ChecklistItem{
		simple(1, "r1", "Site signage", true),
		simple(2, "r2", "Lighting", true),
		simple(3, "r3", "Parking bay marking", true),
		simple(4, "r4", "Fire extinguisher", true),
		simple(5, "r5", "CCTV", false),
		simple(6, "r6", "Canopy and structure", true),
		simple(7, "r7", "Drainage", false),
		simple(8, "r8", "Cleanliness", true),
	},
}

var chargerSchema = model.Schema{
	FormType: Charger,
	Title:    "Charger PM Report",
	Remarks:  model.RemarkNever,
	Items: []model.ChecklistItem{
		simple(1, "r1", "Charger exterior", true),
		simple(2, "r2", "Connector pins", true),
		simple(3, "r3", "Cable insulation", true),
		simple(4, "r4", "Network connectivity", false),
		simple(5, "r5", "OCPP heartbeat", false),
		measure(6, "r6", "Supply voltage", true, voltageFields...),
		remarked(simple(7, "r7", "Customer defects reported", false)),
	},
}
