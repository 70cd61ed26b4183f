package repository

// --- PostgreSQL Implementation ---

var postgresDialect = dialect{
	name:      "postgres",
	maxParams: 65535,
	// Haversine via SQL. Binds: query latitude, query latitude, query longitude.
	distanceExpr: `(
		2 * 3959.0 * asin(sqrt(least(1.0,
			power(sin(radians(latitude - ?) / 2), 2) +
			cos(radians(?)) * cos(radians(latitude)) *
			power(sin(radians(longitude - ?) / 2), 2)
		)))
	)`,
	mathProbe: "SELECT asin(sqrt(power(sin(radians(1.0)), 2))) * cos(0.0)",
}
