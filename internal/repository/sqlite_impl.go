package repository

// --- SQLite Implementation ---

// The math functions are registered on every connection by database.Connect;
// min with two arguments is the scalar minimum.
var sqliteDialect = dialect{
	name:      "sqlite",
	maxParams: 999,
	distanceExpr: `(
		2 * 3959.0 * asin(sqrt(min(1.0,
			power(sin(radians(latitude - ?) / 2), 2) +
			cos(radians(?)) * cos(radians(latitude)) *
			power(sin(radians(longitude - ?) / 2), 2)
		)))
	)`,
	mathProbe: "SELECT asin(sqrt(power(sin(radians(1.0)), 2))) * cos(0.0)",
}
