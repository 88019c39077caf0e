// Package schedule maps tax liabilities onto filing periods.
//
// A rule's filing schedules declare how often a liability is filed
// (quarterly or annually) and how many days after the period end the
// filing is due. Given a date range and a liability, this package
// produces the covered periods with prorated amounts and due dates:
//
//	periods, err := schedule.Periods(r.FilingSchedules[0], from, to)
//	amounts := schedule.Prorate(liability, periods)
package schedule
