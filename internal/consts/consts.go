package consts

const (
	GMIN          = 1e-12 // Leakage conductance loaded on every node diagonal (S)
	RMIN          = 1e-6  // Resistance floor before inversion (ohm)
	PIVOT_EPSILON = 1e-10 // Pivots below this magnitude leave their unknown unresolved

	R_CLOSED = 0.001 // Closed switch contact (ohm)
	R_OPEN   = 1e9   // Open switch contact (ohm)

	LED_R_ON      = 90.0 // Forward-biased LED (ohm)
	LED_R_OFF     = 1e7  // Non-conducting LED (ohm)
	LED_THRESHOLD = 0.5  // Forward voltage that turns the LED on (V)

	MAX_PASSES = 10   // Assemble-solve-update passes per solve
	VOLT_TOL   = 1e-3 // Max node voltage change for convergence (V)
)
