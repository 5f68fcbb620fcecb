package model

// Required fields: a record missing any of these is unusable for rendering.
// Optional fields round a record out but are not needed for minimal output.
//
// Score is pure and must be re-applied after every merge; callers never set
// Status directly.
func Score(r *Record) Status {
	required := Present(r.Title) && len(r.Ingredients) > 0 && len(r.Instructions) > 0
	if !required {
		return StatusUnusable
	}

	optional := 0
	total := 0
	for _, present := range []bool{
		Present(r.TotalTime),
		Present(r.Yields),
		Present(r.Image),
		len(r.Nutrients) > 0,
	} {
		total++
		if present {
			optional++
		}
	}

	switch {
	case optional == total:
		return StatusComplete
	case optional > 0:
		return StatusPartial
	default:
		return StatusEssential
	}
}

// Rescore recomputes and stores the record's status.
func Rescore(r *Record) {
	r.Status = Score(r)
}
