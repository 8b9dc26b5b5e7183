// Package domain models tropical-cyclone best-track data and the exposure
// records derived from it.
//
// # Data Source
//
// Tracks come from the NHC HURDAT2 Atlantic best-track archive
// (https://www.nhc.noaa.gov/data/#hurdat). Each storm starts with a header
// line followed by one line per 6-hourly fix (plus landfall and intensity
// peak records at off-synoptic times).
//
// # HURDAT2 Conventions
//
// Header:
//
//	"AL092021, IDA, 40,"  →  basin + number + year, name, fix count.
//
// Fix:
//
//	date (YYYYMMDD), time (HHMM UTC), record identifier ("L" = landfall),
//	status ("HU", "TS", "TD", "EX", ...), latitude ("28.0N"),
//	longitude ("94.8W"), max sustained wind (kt), minimum pressure (mb),
//	then 12 wind radii: 34 kt NE/SE/SW/NW, 50 kt NE/SE/SW/NW,
//	64 kt NE/SE/SW/NW (nm), then radius of maximum wind (nm, 2004+).
//
// Missing values:
//
//	-999 is the archive sentinel for unknown. Radii of 0 mean the threshold
//	was not reached in that quadrant. Both are normalized to "missing"
//	(zero in [Radii]) before a [StormTrack] is built.
//
// # Quadrants
//
// Quadrant arcs follow compass bearings: NE spans 0°–90°, SE 90°–180°,
// SW 180°–270°, NW 270°–360°. Offsets from the storm center are classified
// by the signs of their latitude and longitude deltas ([QuadrantOf]).
//
// # Categories
//
// Saffir-Simpson thresholds on 1-minute sustained wind: Cat1 ≥ 64 kt,
// Cat2 ≥ 83, Cat3 ≥ 96, Cat4 ≥ 113, Cat5 ≥ 137.
//
// # ID Generation
//
// Exposure record IDs are deterministic SHA-256 hashes of
// storm|point|threshold prefixed with the storm ID, so reprocessing a storm
// produces the same IDs. See [generateID].
package domain
