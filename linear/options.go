package linear

// Option is a function that configures Regression
type Option func(*Regression)

// WithIntercept sets whether to calculate the intercept
func WithIntercept(fit bool) Option {
	return func(lr *Regression) {
		lr.fitIntercept = fit
	}
}
