package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// MyDateString is a date-only query parameter. It arrives as a local
// calendar date and is widened to a UTC instant before hitting the DB.
type MyDateString time.Time

func (t MyDateString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Time(t).Format("2006-01-02"))), nil
}

func (t *MyDateString) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("MyDateString must be string")
	}
	return t.parse(str)
}

// ParseDateString accepts YYYY-MM-DD or a full local datetime.
func ParseDateString(str string) (MyDateString, error) {
	var t MyDateString
	err := t.parse(str)
	return t, err
}

func (t *MyDateString) parse(str string) error {
	layout := "2006-01-02"
	if strings.Contains(str, "T") {
		layout = "2006-01-02T15:04:05"
	}
	localTime, err := time.Parse(layout, str)
	if err != nil {
		return errors.New("error parsing date")
	}
	*t = MyDateString(localTime)
	return nil
}

func (t *MyDateString) StartOfDayUTCTime(timezone string) error {
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	)
	*t = MyDateString(localTimeInZone.In(time.UTC))

	return nil
}

func (t *MyDateString) EndOfDayUTCTime(timezone string) error {
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		23, 59, 59, 999,
		location,
	)
	*t = MyDateString(localTimeInZone.In(time.UTC))

	return nil
}
