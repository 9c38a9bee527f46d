package domain

// JoinOutcome is the terminal result of a join attempt
type JoinOutcome string

const (
	Joined            JoinOutcome = "joined"
	AlreadyRegistered JoinOutcome = "already_registered"
	CapacityExceeded  JoinOutcome = "capacity_exceeded"
)

// Changed reports whether the attendee set was modified
func (o JoinOutcome) Changed() bool { return o == Joined }

// LeaveOutcome is the terminal result of a leave attempt
type LeaveOutcome string

const (
	Left          LeaveOutcome = "left"
	NotRegistered LeaveOutcome = "not_registered"
)

// Changed reports whether the attendee set was modified
func (o LeaveOutcome) Changed() bool { return o == Left }

// BookmarkOutcome is the result of a bookmark toggle
type BookmarkOutcome string

const (
	Bookmarked        BookmarkOutcome = "bookmarked"
	AlreadyBookmarked BookmarkOutcome = "already_bookmarked"
	Removed           BookmarkOutcome = "removed"
	NotBookmarked     BookmarkOutcome = "not_bookmarked"
)

// Changed reports whether the bookmark set was modified
func (o BookmarkOutcome) Changed() bool { return o == Bookmarked || o == Removed }
