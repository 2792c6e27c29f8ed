package skill

import (
	"strings"

	"opendialog/internal/domain"
)

// Wi-Fi troubleshooting skill states.
const (
	StateDiagInitial    domain.State = "INITIAL"
	StateAskRouterOn    domain.State = "ASK_ROUTER_ON"
	StateAskRestarted   domain.State = "ASK_RESTARTED"
	StateAskOtherDevice domain.State = "ASK_OTHER_DEVICES"
	StateAskCable       domain.State = "ASK_CABLE"
	StateAskLights      domain.State = "ASK_LIGHTS"
)

// Answer fields captured by the troubleshooting skill, one per
// question, each holding "yes" or "no".
const (
	FieldRouterOn     = "router_on"
	FieldRestarted    = "restarted"
	FieldOtherDevices = "other_devices"
	FieldCableOK      = "cable_ok"
	FieldLightsNormal = "lights_normal"
)

// diagAdvice maps a negative answer to the fix it suggests, in
// question order so the recommendation list is deterministic.
var diagAdvice = []struct {
	field  string
	advice string
}{
	{FieldRouterOn, "Plug in and power on your router."},
	{FieldRestarted, "Restart the router and wait two minutes."},
	{FieldOtherDevices, "Reconnect this device; others are fine, so the network itself works."},
	{FieldCableOK, "Reseat or replace the cable between modem and router."},
	{FieldLightsNormal, "Check the router manual for the blinking light pattern, then contact your provider."},
}

// NewWifiTroubleshooting builds a five-question yes/no diagnostic
// skill. All answers affirmative yields a fixed escalation advice;
// any negative answer yields the fixes for exactly the steps that
// failed.
func NewWifiTroubleshooting(maxRetries int) (domain.SkillDefinition, error) {
	question := func(text string) func(domain.Context) string {
		return func(domain.Context) string { return text + " (yes/no)" }
	}
	yesNo := func(field string, next domain.State) StateSpec {
		return StateSpec{
			Prompt: nil, // set below with the question text
			Field:  field,
			Branches: map[string]Branch{
				ClassAffirm: {Next: next, Value: "yes"},
				ClassDeny:   {Next: next, Value: "no"},
			},
		}
	}

	states := map[domain.State]StateSpec{
		StateDiagInitial: {
			Prompt: func(domain.Context) string { return "Let's figure out what's wrong with your Wi-Fi." },
			Next:   StateAskRouterOn,
		},
		StateAskRouterOn:    yesNo(FieldRouterOn, StateAskRestarted),
		StateAskRestarted:   yesNo(FieldRestarted, StateAskOtherDevice),
		StateAskOtherDevice: yesNo(FieldOtherDevices, StateAskCable),
		StateAskCable:       yesNo(FieldCableOK, StateAskLights),
		StateAskLights:      yesNo(FieldLightsNormal, domain.StateComplete),
		domain.StateComplete: {
			Prompt: diagRecommendation,
		},
		domain.StateCancelled: {
			Prompt: func(domain.Context) string { return "Okay, stopping the diagnosis." },
		},
	}
	states[StateAskRouterOn] = withPrompt(states[StateAskRouterOn], question("Is your router powered on?"))
	states[StateAskRestarted] = withPrompt(states[StateAskRestarted], question("Have you restarted the router recently?"))
	states[StateAskOtherDevice] = withPrompt(states[StateAskOtherDevice], question("Do other devices connect to the same network?"))
	states[StateAskCable] = withPrompt(states[StateAskCable], question("Is the cable between modem and router firmly connected?"))
	states[StateAskLights] = withPrompt(states[StateAskLights], question("Are the router lights showing their normal colors?"))

	machine, err := NewMachine(MachineConfig{
		Initial: StateDiagInitial,
		States:  states,
		Required: []string{
			FieldRouterOn, FieldRestarted, FieldOtherDevices, FieldCableOK, FieldLightsNormal,
		},
		MaxRetries:  maxRetries,
		CancelReply: "Okay, stopping the diagnosis.",
	})
	if err != nil {
		return domain.SkillDefinition{}, err
	}

	return domain.SkillDefinition{
		Name:        "wifi_troubleshooting",
		Description: "Walk through five checks to diagnose a broken Wi-Fi connection.",
		Trigger:     domain.Trigger{Intents: []string{"diagnose_wifi"}},
		Required: []string{
			FieldRouterOn, FieldRestarted, FieldOtherDevices, FieldCableOK, FieldLightsNormal,
		},
		Machine: machine,
	}, nil
}

func withPrompt(spec StateSpec, prompt func(domain.Context) string) StateSpec {
	spec.Prompt = prompt
	return spec
}

func diagRecommendation(c domain.Context) string {
	var fixes []string
	for _, a := range diagAdvice {
		if c[a.field] == "no" {
			fixes = append(fixes, a.advice)
		}
	}
	if len(fixes) == 0 {
		return "All five checks passed. The fault is likely outside your home: contact your internet provider and ask about outages in your area."
	}
	return "Here's what to try, in order: " + strings.Join(fixes, " ")
}
