// Package sim flies a headless blackbox drone and records telemetry in the
// format audits consume.
//
// A [Drone] follows a simple point-mass flight model: the flight controller
// steers toward the target it believes in, using the gravity and mass it
// senses, while the real world applies true gravity and drag. Attacks
// ([Hack]) corrupt what the controller senses, so the recorded telemetry
// drifts away from physical truth. [Drone.Apply] takes the simulation reset
// from a forensic report and restores ground truth.
//
//	d := sim.New(sim.WithSeed(7))
//	samples := sim.Flight(d, 120, 180, 60, sim.HackGain, sim.HackBrownout)
//	text, _ := sim.Encode(samples)
//	res, _ := gw.Auditor.Audit(ctx, text)
//	if res.Report.Anomalous() {
//		d.Apply(res.Report.SimulationReset)
//	}
package sim
