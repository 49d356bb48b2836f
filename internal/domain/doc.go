// Package domain models team weather observations and the statistics the
// dashboard reports over them.
//
// # Data Source
//
// Each team member contributes CSV files to a shared data directory. Files
// written by the collect command are named "weather_data_<member>.csv"; files
// exported by hand from spreadsheets or other tools use whatever headers their
// author chose. A file is decoded header-first and every row becomes a
// [RawRecord] tagged with the file's base name.
//
// # Column Conventions
//
// Contributors disagree on naming and units. Recognized columns, tried in
// order (first non-empty value wins):
//
//	timestamp:   timestamp, Timestamp, date, Date, time, Time
//	city:        city, City, location, Location, place, Place
//	country:     country, Country, nation, Nation
//	temperature: temperature, Temperature, temp, Temp, "Temperature (F)", "Temperature (C)"
//	humidity:    humidity, Humidity, humid, Humid
//	wind speed:  wind_speed, "Wind Speed", wind, Wind, windspeed, WindSpeed
//	description: weather_description, Description, description, weather, Weather, conditions, Conditions
//
// Member name comes from a member_name column, else from the file name
// ("weather_data_eric.csv" → "Eric"), else "Unknown". Timestamp, city and
// country default to "Unknown".
//
// Units:
//
//	Temperature is stored in °C. Values from a "(F)" column are Fahrenheit.
//	Unlabelled values above 50 are also assumed Fahrenheit, since no city
//	reports >50°C under normal conditions. This is a heuristic and will
//	misread a genuine 51°C reading. Converted values are rounded to 0.01°C.
//	A Fahrenheit reading above 122°F converts to more than 50°C, so
//	normalizing the exported value again converts it a second time
//	("Temperature (F)" 130 -> 54.44 -> 12.47).
//	Humidity is percent; wind speed is m/s. Neither is converted.
//
// Unparsable numbers:
//
//	A value that does not parse as a float is dropped and the next
//	recognized column is tried. The field is absent (nil) if none parse.
//	The row itself is never rejected. [NormalizeDetailed] reports what was
//	dropped.
//
// Unrecognized columns are carried through unchanged in
// [CanonicalRecord.Extra] when non-empty.
//
// Weather condition is the capitalized first word of the description. A
// weather_main column is read only when no description is present, so the
// API condition written by the collect command ("Clouds") does not survive
// re-ingestion alongside its description ("scattered clouds" -> "Scattered").
//
// # Statistics
//
// [Aggregate] reports count, min, max and mean per numeric field. With no
// values the extrema and mean are nil, never zero. [AggregateByCity] groups by
// exact, case-sensitive city name; a city filter that matches nothing returns
// [ErrNoCityData].
package domain
