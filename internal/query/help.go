package query

// HelpText is printed by the help verb.
const HelpText = `Commands:
  station <name>    List the lines calling at a station
  line <name>       List the stations a line serves
  list stations     List every station
  list lines        List every line
  help              Show this help message
  quit / exit       Leave tubeql

Names are matched exactly, including case.`
