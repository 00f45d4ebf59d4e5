package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/browserstep/harness"
	"gitlab.com/browserstep/runner"
)

// AccountCreationName is the scenario name used in logs and plans
const AccountCreationName = "account creation"

// AccountOptions tune the waits of the account creation flow
type AccountOptions struct {
	// SpinnerProbe is how long to look for a transient spinner before moving on
	SpinnerProbe time.Duration
	// AnimationDelay before the word verification page is usable
	AnimationDelay time.Duration
	// PageLoad options for pages that follow a slow backend call
	PageLoad harness.Options
	// Now is used for the username timestamp
	Now func() time.Time
}

// DefaultAccountOptions matches the timings of the hosted browser
func DefaultAccountOptions() *AccountOptions {
	return &AccountOptions{
		SpinnerProbe:   2500 * time.Millisecond,
		AnimationDelay: 2500 * time.Millisecond,
		PageLoad: harness.Options{
			Timeout:    20 * time.Second,
			Poll:       200 * time.Millisecond,
			DriverWait: 20 * time.Second,
		},
		Now: time.Now,
	}
}

// Identity registered by one run of the flow
type Identity struct {
	Username string
	Password string
	Phrase   []string
}

// Email the recovery key is sent to, the domain never resolves
func (i *Identity) Email() string {
	return i.Username + "@none.test"
}

// NewIdentity with a unique username and a random password
func NewIdentity(now time.Time) (*Identity, error) {
	password, err := harness.RandomString(harness.PasswordPattern)
	if err != nil {
		return nil, errors.Wrap(err, "generating password")
	}
	return &Identity{
		Username: fmt.Sprintf("test_e2e_%d_%d", now.Unix()/100, harness.RandomInt(100000, 999999)),
		Password: password,
	}, nil
}

// Locators used by the flow
var (
	CreateNewID          = harness.XPath(`//div[text()="Create new ID"]`)
	UsernameInput        = harness.CSS(`input[type="text"][name="username"]`)
	CheckAvailability    = harness.XPath(`//button[contains(., "Check Availability")]`)
	ContinueButton       = harness.XPath(`//button[contains(., "Continue")]`)
	PasswordInput        = harness.CSS(`input[type="password"][name="password"]`)
	PasswordConfirmInput = harness.CSS(`input[type="password"][name="passwordConfirm"]`)
	RegisterID           = harness.XPath(`//button[contains(., "Register ID")]`)
	CreatingSpinner      = harness.XPath(`//*[contains(text(), "Creating your Blockstack ID")]`)
	EmailPrompt          = harness.XPath(`//*[contains(text(), "What is your email")]`)
	EmailInput           = harness.CSS(`input[type="email"][name="email"]`)
	NextButton           = harness.XPath(`//button[contains(., "Next")]`)
	EmailFailed          = harness.XPath(`//*[contains(., "email failed")]`)
	RegistrationFailed   = harness.XPath(`//*[text()="Username Registration Failed"]`)
	RegistrationAlertX   = harness.XPath(`//*[text()="Username Registration Failed"]/parent::div/following-sibling::div/descendant::span`)
	RecoveryKeyCard      = harness.XPath(`//div[text()="Secret Recovery Key"]/parent::div`)
	SaveRecoveryPrompt   = harness.XPath(`//div[contains(., "Save your Secret Recovery")]`)
	UnlockingSpinner     = harness.XPath(`//*[contains(text(), "Unlocking Recovery Key")]`)
	RecoveryPhrase       = harness.XPath(`//*[text()="Your Secret Recovery Key"]/following-sibling::*`)
	PhraseContinue       = harness.XPath(`//div[text()="Continue"]/parent::div`)
	SelectWordsPrompt    = harness.XPath(`//*[contains(text(), "Select words #")]`)
	GoToBlockstack       = harness.XPath(`//div[text()="Go to Blockstack"]`)
	UserReadyApps        = harness.XPath(`//*[text()="User-ready Apps"]`)
)

// WordTile is the clickable tile for a phrase word
func WordTile(word string) harness.Locator {
	return harness.XPath(fmt.Sprintf(`//div[span[text()="%s"]]`, word))
}

// AccountCreation registers a new identity and verifies its recovery phrase.
// A nil opts uses DefaultAccountOptions.
func AccountCreation(opts *AccountOptions) *runner.Scenario {
	if opts == nil {
		opts = DefaultAccountOptions()
	}
	return &runner.Scenario{
		Name: AccountCreationName,
		NewSteps: func(cfg *harness.Config) []*runner.Step {
			f := &accountFlow{cfg: cfg, opts: opts}
			return f.steps()
		},
	}
}

type accountFlow struct {
	cfg  *harness.Config
	opts *AccountOptions
	id   *Identity
}

func (f *accountFlow) steps() []*runner.Step {
	return []*runner.Step{
		{Name: "load initial page", Run: f.loadInitialPage},
		{Name: "load create new ID page", Run: f.createNewID},
		{Name: "enter unique username", Run: f.enterUsername},
		{Name: "enter password", Run: f.enterPassword},
		{Name: "wait for creating Blockstack ID spinner", Run: f.waitCreating},
		{Name: "enter email", Run: f.enterEmail},
		{Name: "expect recovery email to fail", Run: f.expectEmailFailed},
		{Name: "check username registration failed", Run: f.checkRegistrationFailed},
		{Name: "acknowledge saving recovery key phrase", Run: f.acknowledgeRecoveryKey},
		{Name: `wait for "unlocking recovery key"`, Run: f.waitUnlocking},
		{Name: "get secret recovery key phrase", Run: f.readPhrase},
		{Name: "perform recovery key phrase verification instructions", Run: f.verifyPhrase},
		{Name: "load main page as authenticated user", Run: f.loadMainPage},
	}
}

func (f *accountFlow) loadInitialPage(ctx context.Context, d *harness.Driver) error {
	return d.Navigate(ctx, f.cfg.URL)
}

func (f *accountFlow) createNewID(ctx context.Context, d *harness.Driver) error {
	_, err := d.El(ctx, CreateNewID, harness.Click(), nil)
	return err
}

func (f *accountFlow) enterUsername(ctx context.Context, d *harness.Driver) error {
	id, err := NewIdentity(f.opts.Now())
	if err != nil {
		return err
	}
	f.id = id
	d.Log().Info().Str("username", id.Username).Msg("registering")

	if _, err := d.El(ctx, UsernameInput, harness.Type(id.Username), nil); err != nil {
		return err
	}
	if _, err := d.El(ctx, CheckAvailability, harness.Click(), nil); err != nil {
		return err
	}
	_, err = d.El(ctx, ContinueButton, harness.Click(), nil)
	return err
}

func (f *accountFlow) enterPassword(ctx context.Context, d *harness.Driver) error {
	if f.id == nil {
		return errors.New("no identity, username step did not run")
	}
	if _, err := d.El(ctx, PasswordInput, harness.Type(f.id.Password), nil); err != nil {
		return err
	}
	if _, err := d.El(ctx, PasswordConfirmInput, harness.Type(f.id.Password), nil); err != nil {
		return err
	}
	_, err := d.El(ctx, RegisterID, harness.Click(), nil)
	return err
}

// waitSpinner probes for a transient spinner that may already be gone, then
// waits for the page that follows it
func (f *accountFlow) waitSpinner(ctx context.Context, d *harness.Driver, spinner, next harness.Locator) error {
	shown, err := d.ExpectOptional(ctx, spinner, f.opts.SpinnerProbe)
	if err != nil {
		return err
	}
	if !shown {
		d.Log().Warn().Str("locator", spinner.String()).Msg("spinner not seen, it may have already closed")
	}
	opts := f.opts.PageLoad
	_, err = d.El(ctx, next, nil, &opts)
	return err
}

func (f *accountFlow) waitCreating(ctx context.Context, d *harness.Driver) error {
	return f.waitSpinner(ctx, d, CreatingSpinner, EmailPrompt)
}

func (f *accountFlow) enterEmail(ctx context.Context, d *harness.Driver) error {
	if _, err := d.El(ctx, EmailInput, harness.Type(f.id.Email()), nil); err != nil {
		return err
	}
	_, err := d.El(ctx, NextButton, harness.Click(), nil)
	return err
}

func (f *accountFlow) expectEmailFailed(ctx context.Context, d *harness.Driver) error {
	_, err := d.El(ctx, EmailFailed, nil, nil)
	return err
}

func (f *accountFlow) checkRegistrationFailed(ctx context.Context, d *harness.Driver) error {
	shown, err := d.ExpectOptional(ctx, RegistrationFailed, f.opts.SpinnerProbe)
	if err != nil || !shown {
		return err
	}
	d.Log().Warn().Msg("Username Registration Failed, does the test host need to be allowed by the registrar?")

	// the alert can cover the continue button
	_, err = d.El(ctx, RegistrationAlertX, harness.Click(), &harness.Options{
		DriverWait: f.opts.SpinnerProbe,
		Until:      harness.UntilNotVisible,
	})
	return d.Optional(err, "closing registration failed alert")
}

func (f *accountFlow) acknowledgeRecoveryKey(ctx context.Context, d *harness.Driver) error {
	// the first click only changes the route
	if _, err := d.El(ctx, RecoveryKeyCard, harness.Click(), nil); err != nil {
		return err
	}
	if _, err := d.El(ctx, SaveRecoveryPrompt, nil, nil); err != nil {
		return err
	}
	_, err := d.El(ctx, RecoveryKeyCard, harness.Click(), nil)
	return err
}

func (f *accountFlow) waitUnlocking(ctx context.Context, d *harness.Driver) error {
	return f.waitSpinner(ctx, d, UnlockingSpinner, RecoveryPhrase)
}

func (f *accountFlow) readPhrase(ctx context.Context, d *harness.Driver) error {
	var text string
	if _, err := d.El(ctx, RecoveryPhrase, harness.ReadText(&text), nil); err != nil {
		return err
	}
	phrase, err := ParsePhrase(text)
	if err != nil {
		return err
	}
	f.id.Phrase = phrase
	_, err = d.El(ctx, PhraseContinue, harness.Click(), nil)
	return err
}

func (f *accountFlow) verifyPhrase(ctx context.Context, d *harness.Driver) error {
	if err := d.Sleep(ctx, f.opts.AnimationDelay); err != nil {
		return err
	}
	var instructions string
	if _, err := d.El(ctx, SelectWordsPrompt, harness.ReadText(&instructions), nil); err != nil {
		return err
	}
	words, err := SelectWords(instructions, f.id.Phrase)
	if err != nil {
		return err
	}
	for _, word := range words {
		if _, err := d.El(ctx, WordTile(word), harness.Click(), nil); err != nil {
			return err
		}
	}
	return nil
}

func (f *accountFlow) loadMainPage(ctx context.Context, d *harness.Driver) error {
	if _, err := d.El(ctx, GoToBlockstack, harness.Click(), nil); err != nil {
		return err
	}
	_, err := d.El(ctx, UserReadyApps, nil, nil)
	return err
}
