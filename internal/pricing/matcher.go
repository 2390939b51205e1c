package pricing

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// immediateLeadTime is the longest lead time still treated as an immediate job.
	immediateLeadTime = time.Hour
	// defaultScheduledHours is the lead time beyond which a job counts as scheduled.
	defaultScheduledHours = 24.0

	earthRadiusMiles = 3958.8
)

// Matches reports whether every populated sub-condition of cond holds for bc.
// Missing context data for a populated sub-condition is a non-match.
func Matches(cond Conditions, bc BookingContext) bool {
	if len(cond.unknown) > 0 {
		return false
	}
	if cond.TimeOfDay != nil && !matchTimeOfDay(*cond.TimeOfDay, bc) {
		return false
	}
	if len(cond.DayOfWeek) > 0 && !matchDayOfWeek(cond.DayOfWeek, bc) {
		return false
	}
	if cond.Location != nil && !matchLocation(*cond.Location, bc) {
		return false
	}
	if cond.Urgency != nil && !matchUrgency(*cond.Urgency, bc) {
		return false
	}
	if cond.Demand != nil && !matchDemand(*cond.Demand, bc.Demand) {
		return false
	}
	if cond.CustomerType != nil && !equalFoldPtr(*cond.CustomerType, bc.CustomerType) {
		return false
	}
	if cond.FleetTier != nil && !equalFoldPtr(*cond.FleetTier, bc.FleetTier) {
		return false
	}
	if len(cond.ServiceType) > 0 && !contains(cond.ServiceType, bc.ServiceTypeID) {
		return false
	}
	if cond.VehicleCount != nil && (bc.VehicleCount == nil || *bc.VehicleCount < *cond.VehicleCount) {
		return false
	}
	if cond.ReferralCode != nil && (bc.ReferralCode == nil || *bc.ReferralCode != *cond.ReferralCode) {
		return false
	}
	if cond.LoyaltyPoints != nil && (bc.LoyaltyPoints == nil || *bc.LoyaltyPoints < *cond.LoyaltyPoints) {
		return false
	}
	return true
}

// localSchedule returns scheduledFor in the booking's time zone.
func localSchedule(bc BookingContext) (time.Time, bool) {
	if bc.ScheduledFor.IsZero() {
		return time.Time{}, false
	}
	if bc.TimeZone == "" {
		return bc.ScheduledFor, true
	}
	loc, err := time.LoadLocation(bc.TimeZone)
	if err != nil {
		return time.Time{}, false
	}
	return bc.ScheduledFor.In(loc), true
}

func matchTimeOfDay(cond TimeOfDayCondition, bc BookingContext) bool {
	start, ok := parseClock(cond.Start)
	if !ok {
		return false
	}
	end, ok := parseClock(cond.End)
	if !ok {
		return false
	}
	local, ok := localSchedule(bc)
	if !ok {
		return false
	}

	minute := local.Hour()*60 + local.Minute()
	if start <= end {
		return minute >= start && minute <= end
	}
	// Window wraps past midnight.
	return minute >= start || minute <= end
}

// parseClock converts "HH:MM" to minutes after midnight.
func parseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// parseWeekday resolves a full or abbreviated weekday name.
func parseWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

func matchDayOfWeek(days []string, bc BookingContext) bool {
	local, ok := localSchedule(bc)
	if !ok {
		return false
	}
	for _, name := range days {
		if d, ok := parseWeekday(name); ok && d == local.Weekday() {
			return true
		}
	}
	return false
}

func matchLocation(cond LocationCondition, bc BookingContext) bool {
	switch cond.Type {
	case LocationZone:
		return equalFoldNonEmpty(cond.Value, bc.Location.Zone)
	case LocationState:
		return equalFoldNonEmpty(cond.Value, bc.Location.State)
	case LocationCity:
		return equalFoldNonEmpty(cond.Value, bc.Location.City)
	case LocationDistance:
		if cond.Threshold == nil {
			return false
		}
		return decimal.NewFromFloat(bc.EstimatedDistance).GreaterThan(*cond.Threshold)
	case LocationCoordinates:
		if cond.Center == nil || bc.Location.Lat == nil || bc.Location.Lng == nil {
			return false
		}
		d := haversineMiles(*cond.Center, GeoPoint{Lat: *bc.Location.Lat, Lng: *bc.Location.Lng})
		return d <= cond.RadiusMiles
	default:
		return false
	}
}

// haversineMiles returns the great-circle distance between a and b.
func haversineMiles(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

func matchUrgency(cond UrgencyCondition, bc BookingContext) bool {
	jobType := strings.ToLower(bc.JobType)
	lead, hasLead := leadTime(bc)

	switch cond.Type {
	case UrgencyImmediate:
		if jobType == "emergency" || jobType == "immediate" {
			return true
		}
		return hasLead && lead <= immediateLeadTime
	case UrgencyWithinHours:
		if cond.Hours == nil || !hasLead {
			return false
		}
		return lead >= 0 && lead <= hoursToDuration(*cond.Hours)
	case UrgencyScheduled:
		if jobType == "scheduled" {
			return true
		}
		hours := defaultScheduledHours
		if cond.Hours != nil {
			hours = *cond.Hours
		}
		return hasLead && lead > hoursToDuration(hours)
	default:
		return false
	}
}

func leadTime(bc BookingContext) (time.Duration, bool) {
	if bc.RequestedAt == nil || bc.ScheduledFor.IsZero() {
		return 0, false
	}
	return bc.ScheduledFor.Sub(*bc.RequestedAt), true
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func matchDemand(cond DemandCondition, snap *DemandSnapshot) bool {
	if snap == nil {
		return false
	}
	if cond.ActiveJobs != nil && snap.ActiveJobs < *cond.ActiveJobs {
		return false
	}
	if cond.AvailableContractors != nil && snap.AvailableContractors < *cond.AvailableContractors {
		return false
	}
	if cond.SurgeZone != nil && !equalFoldNonEmpty(*cond.SurgeZone, snap.SurgeZone) {
		return false
	}
	return true
}

func equalFoldNonEmpty(want, got string) bool {
	return got != "" && strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
}

func equalFoldPtr(want string, got *string) bool {
	return got != nil && equalFoldNonEmpty(want, *got)
}

func contains(set []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
