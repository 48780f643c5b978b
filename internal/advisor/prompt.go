package advisor

import (
	"fmt"
	"strings"

	telemetry "cement-cloud/internal/telemetry/domain"
)

func buildChatPrompt(timeline telemetry.Timeline, message string) string {
	var summary string
	latest, ok := timeline.Latest()
	if !ok {
		summary = "Plant data is not yet available. Please try again in a moment."
	} else {
		spc, _ := latest.Float("spc")
		tsr, _ := latest.Float("tsr")
		quality, _ := latest.Float("clinker_quality")
		avgSPC, hasAvg := timeline.MeanOver(contextWindow, "spc")
		if !hasAvg {
			avgSPC = spc
		}
		summary = fmt.Sprintf(
			"- Specific Power Consumption (SPC): The current reading is %.2f kWh/t, compared to a recent average of %.2f kWh/t.\n"+
				"- Thermal Substitution Rate (TSR): Currently at %.2f%%.\n"+
				"- Clinker Quality Index: Currently at %.2f%%.",
			spc, avgSPC, tsr, quality)
	}

	var b strings.Builder
	b.WriteString("**//-- MASTER PROMPT: AI CO-PILOT PERSONA --//**\n\n")
	b.WriteString("**YOUR PERSONA:** You are \"Cement-AI,\" a world-class AI co-pilot for a cement plant operator. ")
	b.WriteString("You are precise, data-driven, and give short, actionable answers grounded in the live plant data below.\n\n")
	b.WriteString("**CURRENT PLANT DATA CONTEXT:**\n")
	b.WriteString(summary)
	b.WriteString("\n\n**USER'S MESSAGE:**\n")
	fmt.Fprintf(&b, "%q\n\n", message)
	b.WriteString("**YOUR RESPONSE:**\n")
	return b.String()
}

func buildOptimizePrompt(latest telemetry.Record, targets Targets) string {
	spc, _ := latest.Float("spc")
	quality, _ := latest.Float("clinker_quality")
	tsr, _ := latest.Float("tsr")

	var b strings.Builder
	b.WriteString("**ROLE:** You are a master Process Optimization Engineer for a cement plant.\n\n")
	b.WriteString("**TASK:** Generate a concise, actionable control plan to help the operator move from the 'Current State' to their desired 'Target State'.\n\n")
	b.WriteString("**CURRENT PLANT STATE (LIVE DATA):**\n")
	fmt.Fprintf(&b, "- Specific Power Consumption (SPC): %.2f kWh/t\n", spc)
	fmt.Fprintf(&b, "- Clinker Quality Index: %.2f%%\n", quality)
	fmt.Fprintf(&b, "- Thermal Substitution Rate (TSR): %.2f%%\n\n", tsr)
	b.WriteString("**OPERATOR'S TARGETS:**\n")
	fmt.Fprintf(&b, "- Target SPC: %g kWh/t\n", targets.TargetSPC)
	fmt.Fprintf(&b, "- Target Clinker Quality: %g%%\n", targets.TargetQuality)
	fmt.Fprintf(&b, "- Maximum allowable TSR: %g%%\n\n", targets.MaxTSR)
	b.WriteString("**YOUR RECOMMENDATION:**\n")
	b.WriteString("Based on the difference between the current state and the targets, provide a clear, bulleted list of 2-4 specific, numerical adjustments to the following control parameters:\n")
	b.WriteString("- Kiln Feed Rate\n- Separator Speed\n- Coal Feed Rate\n- Airflow\n\n")
	b.WriteString("Start your response with a brief summary of the goal, then provide the bulleted list of actions.\n")
	return b.String()
}
