package breaker

// Verdict is the outcome of evaluating one rule against a completed call
// (spec.md §4.D).
type Verdict int

const (
	Next Verdict = iota
	Success
	Failure
	Ignore
)

// CallOutcome carries everything a rule may inspect about a completed
// call. Headers/Trailers use a flat map rather than a full header type
// since the breaker has no dependency on the wire layer.
type CallOutcome struct {
	Cause            error
	Headers          map[string]string
	Trailers         map[string]string
	Body             []byte
	BodyTruncated    bool
	StatusCode       int
	TotalDurationMs  int64
	Unprocessed      bool
	TimeoutException bool
}

// Rule is a single predicate/verdict pair evaluated against a CallOutcome.
// A chain evaluates rules left-to-right; the first non-Next verdict wins.
type Rule func(o CallOutcome) Verdict

// Evaluator is an ordered chain of rules with a default verdict for when
// every rule returns Next.
type Evaluator struct {
	rules          []Rule
	maxContentLen  int
	defaultVerdict Verdict
}

// NewEvaluator builds an Evaluator. defaultVerdict is returned when no rule
// in the chain matches; spec.md leaves the fallback to the caller, so the
// default here is Success (a call nothing in the chain flagged is treated
// as healthy, matching "fail closed only on an explicit match").
func NewEvaluator(maxContentLen int, rules ...Rule) *Evaluator {
	return &Evaluator{rules: rules, maxContentLen: maxContentLen, defaultVerdict: Success}
}

// Evaluate runs the chain against o, truncating Body to maxContentLen
// first (marking BodyTruncated) for any rule that inspects it.
func (e *Evaluator) Evaluate(o CallOutcome) Verdict {
	if e.maxContentLen > 0 && len(o.Body) > e.maxContentLen {
		o.Body = o.Body[:e.maxContentLen]
		o.BodyTruncated = true
	}
	for _, r := range e.rules {
		if v := r(o); v != Next {
			return v
		}
	}
	return e.defaultVerdict
}

// OnStatus matches an exact HTTP status code.
func OnStatus(code int, then Verdict) Rule {
	return func(o CallOutcome) Verdict {
		if o.StatusCode == code {
			return then
		}
		return Next
	}
}

// OnStatusClass matches a status code class, e.g. classBase=500 matches
// 500-599.
func OnStatusClass(classBase int, then Verdict) Rule {
	return func(o CallOutcome) Verdict {
		if o.StatusCode >= classBase && o.StatusCode < classBase+100 {
			return then
		}
		return Next
	}
}

// OnException matches any non-nil Cause, optionally filtered by match
// (e.g. errors.Is/As against a sentinel); match==nil matches any cause.
func OnException(match func(error) bool, then Verdict) Rule {
	return func(o CallOutcome) Verdict {
		if o.Cause == nil {
			return Next
		}
		if match == nil || match(o.Cause) {
			return then
		}
		return Next
	}
}

// OnTimeoutException matches calls flagged as timed out.
func OnTimeoutException(then Verdict) Rule {
	return func(o CallOutcome) Verdict {
		if o.TimeoutException {
			return then
		}
		return Next
	}
}

// OnUnprocessed matches calls that never reached the wire.
func OnUnprocessed(then Verdict) Rule {
	return func(o CallOutcome) Verdict {
		if o.Unprocessed {
			return then
		}
		return Next
	}
}

// OnResponseHeaders matches when pred returns true for the response
// headers.
func OnResponseHeaders(pred func(map[string]string) bool, then Verdict) Rule {
	return func(o CallOutcome) Verdict {
		if pred(o.Headers) {
			return then
		}
		return Next
	}
}

// OnResponseTrailers matches when pred returns true for the response
// trailers.
func OnResponseTrailers(pred func(map[string]string) bool, then Verdict) Rule {
	return func(o CallOutcome) Verdict {
		if pred(o.Trailers) {
			return then
		}
		return Next
	}
}

// OnTotalDurationMs matches calls whose total duration is at least minMs.
func OnTotalDurationMs(minMs int64, then Verdict) Rule {
	return func(o CallOutcome) Verdict {
		if o.TotalDurationMs >= minMs {
			return then
		}
		return Next
	}
}

// OnResponse matches via a caller-supplied body predicate. With
// Evaluator.maxContentLen > 0, pred sees at most that many bytes and is
// told whether the body was cut; with it at 0 the body is passed through
// unchanged.
func OnResponse(pred func(body []byte, truncated bool) bool, then Verdict) Rule {
	return func(o CallOutcome) Verdict {
		if pred(o.Body, o.BodyTruncated) {
			return then
		}
		return Next
	}
}
